package transfer

import "github.com/andewx/mlsmpm/grid"

// Normalize is the block-local pass between Rasterize and Resample (spec
// §4.E/§4.F "Post-rasterize normalization"): every cell with mass > 0
// divides its accumulated momentum by mass in place, turning
// velocity_and_mass's first three lanes into velocity; a cell with zero
// mass is left untouched. When particle_gravity is disabled, grid-level
// gravity is applied here instead of per-particle in Rasterize.
func Normalize(g *grid.SparseGrid, scheduler *grid.BlockScheduler, p Params) error {
	return scheduler.Run(func(offset grid.BlockOffset) error {
		block := g.Block(offset)
		if block == nil {
			return nil
		}
		for idx := range block.Cells {
			cell := &block.Cells[idx]
			mass := cell.VelocityAndMass[3]
			if mass <= 0 {
				continue
			}
			inv := 1 / mass
			cell.VelocityAndMass[0] *= inv
			cell.VelocityAndMass[1] *= inv
			cell.VelocityAndMass[2] *= inv
			if !p.ParticleGravity {
				cell.VelocityAndMass[0] += p.Gravity[0] * p.Dt
				cell.VelocityAndMass[1] += p.Gravity[1] * p.Dt
				cell.VelocityAndMass[2] += p.Gravity[2] * p.Dt
			}
		}
		return nil
	})
}
