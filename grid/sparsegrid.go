package grid

import (
	"github.com/andewx/mlsmpm/mpmerr"
	"github.com/andewx/mlsmpm/vector"
)

// Block is a contiguous run of CellsPerBlock cells, addressed in
// block-linear order (spec §3 "Block").
type Block struct {
	Offset BlockOffset
	Base   IVec3
	Cells  [CellsPerBlock]GridState
}

// SparseGrid is a virtual-memory-backed 3D array of GridState cells,
// organized into power-of-two blocks with lazy per-block commit (spec
// §4.A). Go has no portable way to reserve-then-commit a raw address
// range the way the original's paged grid does, so blocks are committed
// by inserting into a map keyed by BlockOffset; MaxBlocks bounds the
// commit count the way a real reservation would bound it, surfacing
// mpmerr.ResourceExhausted instead of growing without limit.
type SparseGrid struct {
	blocks       map[BlockOffset]*Block
	order        []BlockOffset
	pageMap      *PageMap
	rigidPageMap *PageMap
	maxBlocks    int
}

// DefaultMaxBlocks bounds the number of committed blocks absent an
// explicit limit; it is large enough for any terrain/rover or
// Taylor-Couette scenario in scope (tens of millions of cells).
const DefaultMaxBlocks = 1 << 20

func NewSparseGrid() *SparseGrid {
	return NewSparseGridWithLimit(DefaultMaxBlocks)
}

func NewSparseGridWithLimit(maxBlocks int) *SparseGrid {
	return &SparseGrid{
		blocks:       make(map[BlockOffset]*Block),
		pageMap:      NewPageMap(),
		rigidPageMap: NewPageMap(),
		maxBlocks:    maxBlocks,
	}
}

// IsAllocated reports whether the block at offset has been committed.
func (g *SparseGrid) IsAllocated(offset BlockOffset) bool {
	return g.pageMap.IsSet(offset)
}

// Allocate commits the block at offset, or returns the existing block if
// already committed. Fails fatally (mpmerr.ResourceExhausted) once
// maxBlocks committed blocks are live.
func (g *SparseGrid) Allocate(offset BlockOffset) (*Block, error) {
	if b, ok := g.blocks[offset]; ok {
		return b, nil
	}
	if len(g.blocks) >= g.maxBlocks {
		return nil, mpmerr.New(mpmerr.ResourceExhausted, "sparse grid: block commit limit reached")
	}
	b := &Block{Offset: offset, Base: LinearToCoord(offset)}
	g.blocks[offset] = b
	g.pageMap.Set(offset)
	g.order = append(g.order, offset)
	return b, nil
}

// Block returns the committed block at offset, or nil if uncommitted.
func (g *SparseGrid) Block(offset BlockOffset) *Block {
	return g.blocks[offset]
}

// LiveBlocks returns the offsets of all committed blocks, in allocation
// order. The scheduler does not rely on this order across colors (spec
// §4.B); it is stable only for deterministic replay of a fixed run.
func (g *SparseGrid) LiveBlocks() []BlockOffset {
	return g.order
}

// CellAt returns the GridState at coordinate c. Per spec §4.A, cells in
// uncommitted blocks read as zero.
func (g *SparseGrid) CellAt(c IVec3) GridState {
	offset := CoordToBlockOffset(c)
	b := g.blocks[offset]
	if b == nil {
		return GridState{}
	}
	_, local := SplitCoord(c)
	return b.Cells[LocalIndex(local[0], local[1], local[2])]
}

// CellPtr returns a pointer to the live GridState at c, or nil if its
// block is uncommitted.
func (g *SparseGrid) CellPtr(c IVec3) *GridState {
	offset := CoordToBlockOffset(c)
	b := g.blocks[offset]
	if b == nil {
		return nil
	}
	_, local := SplitCoord(c)
	return &b.Cells[LocalIndex(local[0], local[1], local[2])]
}

// ClearMomentum zeroes every live block's momentum/mass, particle count,
// and granular-fluidity lanes in place. Nothing else resets a P2G
// accumulation target between steps (or between a Step's CFL substeps),
// so a driver that skips this before Rasterize would have each pass add
// onto the previous one's normalized velocities forever; tag/rigid-id
// state in States and the collider Distance field are untouched, since
// those persist across steps rather than being rebuilt by P2G.
func (g *SparseGrid) ClearMomentum() {
	for _, offset := range g.order {
		b := g.blocks[offset]
		for i := range b.Cells {
			cell := &b.Cells[i]
			cell.VelocityAndMass = vector.Vec4{}
			cell.GranularFluidity = 0
			cell.Aux = [4]float32{}
			cell.ParticleCount = 0
		}
	}
}

// MarkRigidAware flags offset in the rigid-aware page map (spec §4.A:
// "consulted to pick the rigid-aware block kernel").
func (g *SparseGrid) MarkRigidAware(offset BlockOffset) {
	g.rigidPageMap.Set(offset)
}

func (g *SparseGrid) IsRigidAware(offset BlockOffset) bool {
	return g.rigidPageMap.IsSet(offset)
}

func (g *SparseGrid) PageMapStats() Stats {
	return g.pageMap.Stats()
}

// EnsureNeighborhood allocates the block at c and its positive-direction
// one-block halo (+x, +y, +z and their combinations). This is only the
// positive-direction half of what a GridCache load/store touches, since
// the cache's halo spans one cell on every side. Scenario setup (out of scope)
// is expected to call this for every block a particle's stencil can reach
// before the first step; it is exposed here because the cache's write-back
// path treats a missing halo block as mpmerr.InternalInvariant, not a
// lazy-allocate opportunity (spec §4.D/§7).
func (g *SparseGrid) EnsureNeighborhood(offset BlockOffset) error {
	for dz := int32(0); dz <= 1; dz++ {
		for dy := int32(0); dy <= 1; dy++ {
			for dx := int32(0); dx <= 1; dx++ {
				if _, err := g.Allocate(NeighborOffset(offset, dx, dy, dz)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
