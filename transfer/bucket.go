// Package transfer implements the Rasterize (P2G) and Resample (G2P)
// phases of one MLS-MPM substep (spec §4.E, §4.F), plus the
// post-rasterize grid normalization step between them, wiring together
// grid, kernel, coloring, rigid, and material.
package transfer

import (
	"github.com/andewx/mlsmpm/grid"
	"github.com/andewx/mlsmpm/kernel"
	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// Params carries the per-step constants every phase needs.
type Params struct {
	Dx, InvDx       float32
	Dt              float32
	Gravity         vector.Vec3
	ParticleGravity bool
	// PenaltyStrength scales the boundary-penalty velocity correction
	// (spec §4.F "subtract boundary_distance*n_p*penalty from v").
	PenaltyStrength float32
	// APICDamping damps the B/C affine carriers each G2P pass (spec §4.F
	// "B <- damp(B), C <- damp(C)").
	APICDamping float32
	// DomainMax is the per-axis upper clamp bound res*dx-eps a particle's
	// advanced position is held inside (spec §4.F point 3).
	DomainMax vector.Vec3
}

// ownerOffset returns the block that owns particle p's stencil, defined
// by which block contains the stencil's middle cell (base+1 in each
// axis). A GridCache's halo spans exactly one cell beyond the owning
// block in every direction, so centering ownership on the middle cell
// (rather than the base cell, as the informal spec prose suggests)
// guarantees every one of the 27 stencil cells - from base to base+2 -
// falls inside that cache's [-1, BlockDim] footprint.
func ownerOffset(st kernel.Stencil) grid.BlockOffset {
	mid := grid.IVec3{st.BaseCell[0] + 1, st.BaseCell[1] + 1, st.BaseCell[2] + 1}
	return grid.CoordToBlockOffset(mid)
}

// ensureFullHalo commits offset and all 26 neighboring blocks so a
// GridCache load/store at offset never finds an uncommitted halo cell
// (grid.SparseGrid.EnsureNeighborhood only commits the positive-side
// half of this footprint; Rasterize/Resample need the full cube since a
// stencil can touch either side of the owning block).
func ensureFullHalo(g *grid.SparseGrid, offset grid.BlockOffset) error {
	for dz := int32(-1); dz <= 1; dz++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				if _, err := g.Allocate(grid.NeighborOffset(offset, dx, dy, dz)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// bucketParticles groups particles by ownerOffset and commits the full
// halo neighborhood for every resulting block.
func bucketParticles(g *grid.SparseGrid, particles []*mpparticle.Particle, invDx float32) (map[grid.BlockOffset][]*mpparticle.Particle, error) {
	buckets := make(map[grid.BlockOffset][]*mpparticle.Particle)
	for _, p := range particles {
		st := kernel.Compute(vector.Scale(p.Pos, invDx))
		off := ownerOffset(st)
		buckets[off] = append(buckets[off], p)
	}
	for off := range buckets {
		if err := ensureFullHalo(g, off); err != nil {
			return nil, err
		}
	}
	return buckets, nil
}
