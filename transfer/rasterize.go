package transfer

import (
	"github.com/andewx/mlsmpm/coloring"
	"github.com/andewx/mlsmpm/grid"
	"github.com/andewx/mlsmpm/kernel"
	"github.com/andewx/mlsmpm/material"
	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/rigid"
	"github.com/andewx/mlsmpm/vector"
)

// tagBitsMask covers coloring's low TagBits bits, the per-rigid side tags
// merged from contributing particles (spec §3 invariant 3); it excludes
// the high rigid-id bits, which a boundary-tagging pass owns, not P2G.
const tagBitsMask = uint32(1)<<coloring.TagBits - 1

// Rasterize is the particle-to-grid (P2G) phase (spec §4.E). It buckets
// particles by owning block, then runs one pass per 8-coloring class via
// scheduler, loading each touched block's GridCache, scattering every
// bucketed particle's momentum/stress/impulse contribution into it, and
// storing the cache back into g. rigids.ResetAll/FlushAll bracket the
// whole pass so per-rigid impulse scratch only reflects this phase.
func Rasterize(g *grid.SparseGrid, scheduler *grid.BlockScheduler, particles []*mpparticle.Particle, materials material.Table, rigids *rigid.Registry, p Params) error {
	buckets, err := bucketParticles(g, particles, p.InvDx)
	if err != nil {
		return err
	}

	// Every live block's momentum/mass/particle-count must start this
	// pass at zero, or Load's baseline read-back carries forward whatever
	// the previous Rasterize (or CFL substep) normalized into velocity,
	// and P2G accumulates a second time on top of it.
	g.ClearMomentum()

	rigids.ResetAll()

	err = scheduler.Run(func(offset grid.BlockOffset) error {
		bucket := buckets[offset]
		if len(bucket) == 0 {
			return nil
		}
		cache := grid.NewGridCache()
		cache.Load(g, offset)

		for _, part := range bucket {
			if p.ParticleGravity {
				part.Velocity = vector.Add(part.Velocity, vector.Scale(p.Gravity, p.Dt))
			}
			st := kernel.Compute(vector.Scale(part.Pos, p.InvDx))
			mat := materials.For(part)
			stressDt := vector.MatScale(mat.CalculateForce(part), p.Dt)

			// invD = 4*inv_dx^2 for the quadratic B-spline kernel (the
			// kernel's normalization constant, original Kernel::inv_D()).
			// apic_b/apic_c are scaled by inv_D*mass (apic_c by 16*mass)
			// before entering the stencil loop, matching the original's
			// apic_b_inv_d_mass/apic_c_inv_d_mass precomputation.
			invD := 4 * p.InvDx * p.InvDx
			bScaled := vector.MatScale(part.ApicB, invD*part.Mass)
			cScaled := vector.MatScale(part.ApicC, 16*part.Mass)

			st.Each(func(i, j, k int, w float32) {
				if w == 0 {
					return
				}
				cellCoord := st.CellCoord(i, j, k)
				cell := cache.AtWorld(cellCoord)
				if cell == nil {
					return
				}
				dpos := st.Dpos(i, j, k)
				gradW := vector.Scale(st.Gradient(i, j, k), p.InvDx)

				if coloring.IsCut(cell.States, part.States) {
					rigidID := coloring.RigidID(cell.States)
					r := rigids.RigidOf(rigidID)
					if r == nil {
						return
					}
					posGrid := vector.Scale(vector.Vec3{
						float32(cellCoord[0]), float32(cellCoord[1]), float32(cellCoord[2]),
					}, p.Dx)
					vr := r.VelocityAt(posGrid)
					_, side := coloring.GetTag(part.States, rigidID)
					muIdx := 0
					if side {
						muIdx = 1
					}
					mu := r.Frictions()[muIdx]
					projected := coloring.FrictionProject(part.Velocity, vr, part.BoundaryNormal, mu)
					relVel := vector.Sub(part.Velocity, projected)
					impulse := vector.Add(
						vector.Scale(relVel, part.Mass*w),
						vector.MulVec(stressDt, gradW),
					)
					r.ApplyTmpImpulse(impulse, posGrid)
					return
				}

				affine := vector.Add(vector.MulVec(bScaled, dpos), vector.MulVec(cScaled, apicCCrossTerms(dpos)))
				momentumDelta := vector.Add(vector.Scale(part.Velocity, part.Mass), affine)
				stressTerm := vector.Scale(vector.MulVec(stressDt, dpos), -4*p.InvDx)
				combined := vector.Add(momentumDelta, stressTerm)
				cell.VelocityAndMass = cell.VelocityAndMass.Add(vector.Vec4{
					w * combined[0], w * combined[1], w * combined[2], w * part.Mass,
				})
				// States on the grid is the merge of contributing particles'
				// tag bits in the block (spec §3 invariant 3); the rigid-id
				// high bits are left to whatever tagging pass seeded them.
				cell.States |= part.States & tagBitsMask
			})

			// particle_count is "number of particles whose base cell lies
			// in this node's block slot" (spec §3), counted once per
			// particle at its base cell - not once per stencil touch, which
			// would count each particle up to 27 times over.
			if baseCell := cache.AtWorld(st.BaseCell); baseCell != nil {
				baseCell.ParticleCount++
			}
		}

		return cache.StoreBack(g)
	})
	if err != nil {
		return err
	}
	rigids.FlushAll()
	return nil
}

// apicCCrossTerms builds the unsymmetrized dposc used by the APIC-C affine
// term: dposc[i] = dpos[i]*dpos[(i+1)%3] (spec §4.E point 5;
// transfer.cpp:458-460).
func apicCCrossTerms(dpos vector.Vec3) vector.Vec3 {
	return vector.Vec3{dpos[0] * dpos[1], dpos[1] * dpos[2], dpos[2] * dpos[0]}
}
