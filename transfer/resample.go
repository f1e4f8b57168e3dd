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

// Resample is the grid-to-particle (G2P) phase (spec §4.F): it rebuilds
// each particle's velocity and APIC affine carriers from the (now
// normalized) grid, advances position, and invokes the particle's
// material.Plasticity with the resulting deformation-gradient increment.
// It reads the grid only - no StoreBack - since G2P never mutates grid
// state.
func Resample(g *grid.SparseGrid, scheduler *grid.BlockScheduler, particles []*mpparticle.Particle, materials material.Table, rigids *rigid.Registry, p Params) error {
	buckets, err := bucketParticles(g, particles, p.InvDx)
	if err != nil {
		return err
	}

	return scheduler.Run(func(offset grid.BlockOffset) error {
		bucket := buckets[offset]
		if len(bucket) == 0 {
			return nil
		}
		cache := grid.NewGridCache()
		cache.Load(g, offset)

		for _, part := range bucket {
			resampleOne(cache, part, materials, rigids, p)
		}
		return nil
	})
}

func resampleOne(cache *grid.GridCache, part *mpparticle.Particle, materials material.Table, rigids *rigid.Registry, p Params) {
	st := kernel.Compute(vector.Scale(part.Pos, p.InvDx))

	var v vector.Vec3
	var bAcc, cAcc vector.Mat3
	nearBoundary := part.BoundaryDistance > -0.3*p.Dx && part.BoundaryDistance < -0.05*p.Dx
	var claimingRigid rigid.Body

	st.Each(func(i, j, k int, w float32) {
		if w == 0 {
			return
		}
		cellCoord := st.CellCoord(i, j, k)
		cell := cache.AtWorld(cellCoord)
		if cell == nil {
			return
		}
		gridV := vector.Vec3{cell.VelocityAndMass[0], cell.VelocityAndMass[1], cell.VelocityAndMass[2]}
		dpos := st.Dpos(i, j, k)

		if coloring.IsCut(cell.States, part.States) {
			rigidID := coloring.RigidID(cell.States)
			if r := rigids.RigidOf(rigidID); r != nil {
				claimingRigid = r
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
				if nearBoundary {
					push := vector.Scale(part.BoundaryNormal, p.Dt*p.Dx*p.PenaltyStrength)
					gridV = vector.Add(projected, push)
				} else {
					gridV = projected
				}
			} else {
				gridV = part.Velocity
			}
		}

		wv := vector.Scale(gridV, w)
		v = vector.Add(v, wv)

		// apic_c accumulates off the running, partially-summed apic_b
		// column, not a clean outer product of this node's increment
		// (transfer.cpp:843: c[r] = fused_mul_add(b[r], dpos[(r+1)%3],
		// c[r]) uses b[r] *after* this node's own contribution to it).
		// bAcc/cAcc are column-indexed here to match that accumulation
		// (column r of bAcc is b[r] in the original).
		for col := 0; col < 3; col++ {
			bCol := vector.Add(bAcc.Col(col), vector.Scale(wv, dpos[col]))
			for row := 0; row < 3; row++ {
				bAcc.Set(row, col, bCol[row])
			}
			cCol := vector.Add(cAcc.Col(col), vector.Scale(bCol, dpos[(col+1)%3]))
			for row := 0; row < 3; row++ {
				cAcc.Set(row, col, cCol[row])
			}
		}
	})

	if nearBoundary {
		bAcc = vector.Mat3{}
		cAcc = vector.Mat3{}
	} else {
		bAcc = vector.MatScale(bAcc, p.APICDamping)
		cAcc = vector.MatScale(cAcc, p.APICDamping)
	}
	part.Velocity = v
	part.ApicB = bAcc
	part.ApicC = cAcc

	fInc := vector.MatAdd(vector.Identity3(), vector.MatScale(bAcc, -4*p.Dt*p.InvDx))
	mid := grid.IVec3{st.BaseCell[0] + 1, st.BaseCell[1] + 1, st.BaseCell[2] + 1}
	lapGF := laplacianGF(cache, mid, p.Dx)
	mat := materials.For(part)
	mat.Plasticity(part, fInc, lapGF)

	part.Pos = vector.Add(part.Pos, vector.Scale(part.Velocity, p.Dt))
	part.Pos = clampToDomain(part.Pos, p.DomainMax)

	if nearBoundary {
		penalty := vector.Scale(part.BoundaryNormal, part.BoundaryDistance*p.PenaltyStrength)
		part.Velocity = vector.Sub(part.Velocity, penalty)
		if claimingRigid != nil {
			claimingRigid.ApplyTmpImpulse(vector.Scale(penalty, -part.Mass), part.Pos)
		}
	}
}

// clampToDomain holds pos inside [0, domainMax] per axis (spec §4.F point
// 3, "clamp to [0, res*dx - eps]" - domainMax is that upper bound,
// precomputed by the caller from the grid's resolution).
func clampToDomain(pos, domainMax vector.Vec3) vector.Vec3 {
	for axis := 0; axis < 3; axis++ {
		if pos[axis] < 0 {
			pos[axis] = 0
		}
		if domainMax[axis] > 0 && pos[axis] > domainMax[axis] {
			pos[axis] = domainMax[axis]
		}
	}
	return pos
}

// laplacianGF estimates the discrete Laplacian of grid-node granular
// fluidity around center using a 6-point stencil, skipping any neighbor
// that falls outside the cache's halo footprint (treated as a zero-flux
// boundary) rather than failing - this is a deliberately approximate
// stand-in for the original's full non-local amplitude PDE, consistent
// with Nonlocal.Plasticity treating its laplacianGF argument as an
// external rheology input rather than re-deriving it itself.
func laplacianGF(cache *grid.GridCache, center grid.IVec3, dx float32) float32 {
	c := cache.AtWorld(center)
	if c == nil || dx == 0 {
		return 0
	}
	dirs := [6]grid.IVec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	var sum float32
	var count int
	for _, d := range dirs {
		n := cache.AtWorld(grid.IVec3{center[0] + d[0], center[1] + d[1], center[2] + d[2]})
		if n == nil {
			continue
		}
		sum += n.GranularFluidity
		count++
	}
	if count == 0 {
		return 0
	}
	return (sum - float32(count)*c.GranularFluidity) / (dx * dx)
}
