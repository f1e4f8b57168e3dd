package grid

import "github.com/andewx/mlsmpm/mpmerr"

// Halo-padded cache dimensions: one ghost cell on every face of the block
// so a 3x3x3 MLS stencil centered anywhere inside the block never reads
// outside the cache (spec §4.D).
const (
	cacheDimX = BlockDimX + 2
	cacheDimY = BlockDimY + 2
	cacheDimZ = BlockDimZ + 2
	cacheLen  = cacheDimX * cacheDimY * cacheDimZ
)

func cacheIndex(lx, ly, lz int32) int {
	return int(lx+1) + int(ly+1)*cacheDimX + int(lz+1)*cacheDimX*cacheDimY
}

// GridCache is the full per-block scratch buffer a P2G/G2P pass works
// against: the block's own 64 cells plus a one-cell halo copied in from
// neighboring blocks, so rasterization and resampling touch only
// block-local memory (spec §4.D, "lock-free accumulation within a block").
type GridCache struct {
	Base  IVec3
	cells [cacheLen]GridState
}

// NewGridCache allocates an (uninitialized) cache. Load must be called
// before use.
func NewGridCache() *GridCache {
	return &GridCache{}
}

// Load copies the block at offset and its full 3x3x3 block-neighborhood
// (for the corner/edge/face ghost cells a 3x3x3 cell stencil can touch
// near a block boundary) from g into the cache. Missing neighbor blocks
// read as zero cells, matching SparseGrid.CellAt's convention for
// uncommitted blocks.
func (c *GridCache) Load(g *SparseGrid, offset BlockOffset) {
	c.Base = LinearToCoord(offset)
	for lz := int32(-1); lz <= BlockDimZ; lz++ {
		for ly := int32(-1); ly <= BlockDimY; ly++ {
			for lx := int32(-1); lx <= BlockDimX; lx++ {
				world := IVec3{c.Base[0] + lx, c.Base[1] + ly, c.Base[2] + lz}
				c.cells[cacheIndex(lx, ly, lz)] = g.CellAt(world)
			}
		}
	}
}

// At returns a pointer to the cached cell at block-local coordinate
// (lx,ly,lz), where each component may range over [-1, BlockDim] to reach
// the halo.
func (c *GridCache) At(lx, ly, lz int32) *GridState {
	return &c.cells[cacheIndex(lx, ly, lz)]
}

// AtWorld returns a pointer to the cached cell for a world-space cell
// coordinate that falls inside this cache's block-plus-halo footprint, or
// nil if it does not.
func (c *GridCache) AtWorld(world IVec3) *GridState {
	lx, ly, lz := world[0]-c.Base[0], world[1]-c.Base[1], world[2]-c.Base[2]
	if lx < -1 || ly < -1 || lz < -1 || lx > BlockDimX || ly > BlockDimY || lz > BlockDimZ {
		return nil
	}
	return c.At(lx, ly, lz)
}

// StoreBack writes the cache's halo contributions back into the live grid.
// Per spec §4.D/§4.B, a grid cell may fall in more than one block's
// footprint (any cell within one block-width of a boundary is in the halo
// of its neighbors too), but Load already seeded this cache from the live
// grid before any particle touched it, so every cache cell already carries
// that baseline plus whatever this pass's particles added on top - the
// write-back must OVERWRITE the live cell with the cache's value, not add
// to it again, or the baseline gets double-counted. This mirrors the
// original GridCache destructor's `grid_array(...) = blocked[i][j][k]`
// assignment, which is correct for the identical reason: the original's
// Load-equivalent re-reads the grid's current (already-accumulated) value
// as its own baseline too.
//
// Each color class's blocks never share a halo cell with each other
// (guaranteed by the 8-coloring, see blockColor), so two StoreBack calls
// in the same Run pass never race on the same cell; across distinct color
// passes, the next block's Load re-reads whatever the previous pass wrote,
// so overwriting here still propagates every pass's contribution forward.
//
// Only the block's own interior cells and true halo cells that already
// exist in g are touched; a halo cell whose block was never allocated is
// treated as mpmerr.InternalInvariant; the transfer package commits the
// full 27-block neighborhood of every block that owns particles before
// any cache is loaded.
func (c *GridCache) StoreBack(g *SparseGrid) error {
	for lz := int32(-1); lz <= BlockDimZ; lz++ {
		for ly := int32(-1); ly <= BlockDimY; ly++ {
			for lx := int32(-1); lx <= BlockDimX; lx++ {
				src := c.At(lx, ly, lz)
				if isZeroState(src) {
					continue
				}
				world := IVec3{c.Base[0] + lx, c.Base[1] + ly, c.Base[2] + lz}
				dst := g.CellPtr(world)
				if dst == nil {
					return mpmerr.New(mpmerr.InternalInvariant, "cache store-back: halo block not committed")
				}
				writeBackCell(dst, src)
			}
		}
	}
	return nil
}

func isZeroState(s *GridState) bool {
	return s.VelocityAndMass.IsZero() && s.States == 0 && s.ParticleCount == 0 && s.GranularFluidity == 0
}

// writeBackCell overwrites dst with src's momentum/mass/fluidity/particle
// count; dst hasn't changed since this cache's Load (same-color blocks
// never share a cell), so src already is the correct post-pass value.
// States still goes through mergeStates rather than a bare assignment, as
// defensive insurance against that same-color-disjoint-halo invariant ever
// being violated - src already contains dst's pre-pass bits merged in, so
// this is a no-op in the expected case.
func writeBackCell(dst, src *GridState) {
	dst.VelocityAndMass = src.VelocityAndMass
	dst.GranularFluidity = src.GranularFluidity
	dst.Aux = src.Aux
	dst.ParticleCount = src.ParticleCount
	dst.States = mergeStates(dst.States, src.States)
}

const idMask = uint32(1)<<IDBits - 1

// mergeStates ORs the low TagBits tag bits of a and b, and keeps a's rigid
// id if it already claims the cell, otherwise takes b's.
func mergeStates(a, b uint32) uint32 {
	tagMaskBits := uint32(1)<<TagBits - 1
	tags := (a | b) & tagMaskBits
	aID := a >> TagBits
	bID := b >> TagBits
	id := aID
	if id == 0 {
		id = bID
	}
	return tags | (id&idMask)<<TagBits
}

// MomentumCache is the lane-only variant used by the resample (G2P) pass's
// read side, which never needs the tag/fluidity/aux lanes a full GridCache
// carries - only per-cell velocity-and-mass. Keeping it separate avoids
// copying the unused 48 bytes/cell a GridState carries when all a routine
// wants is velocity.
type MomentumCache struct {
	Base  IVec3
	lanes [cacheLen]VelocityAndMassLane
}

// VelocityAndMassLane mirrors GridState.VelocityAndMass after per-block
// normalization: Dim velocity components plus mass.
type VelocityAndMassLane = [4]float32

func NewMomentumCache() *MomentumCache {
	return &MomentumCache{}
}

func (c *MomentumCache) Load(g *SparseGrid, offset BlockOffset) {
	c.Base = LinearToCoord(offset)
	for lz := int32(-1); lz <= BlockDimZ; lz++ {
		for ly := int32(-1); ly <= BlockDimY; ly++ {
			for lx := int32(-1); lx <= BlockDimX; lx++ {
				world := IVec3{c.Base[0] + lx, c.Base[1] + ly, c.Base[2] + lz}
				state := g.CellAt(world)
				c.lanes[cacheIndex(lx, ly, lz)] = VelocityAndMassLane(state.VelocityAndMass)
			}
		}
	}
}

func (c *MomentumCache) At(lx, ly, lz int32) *VelocityAndMassLane {
	return &c.lanes[cacheIndex(lx, ly, lz)]
}

func (c *MomentumCache) AtWorld(world IVec3) *VelocityAndMassLane {
	lx, ly, lz := world[0]-c.Base[0], world[1]-c.Base[1], world[2]-c.Base[2]
	if lx < -1 || ly < -1 || lz < -1 || lx > BlockDimX || ly > BlockDimY || lz > BlockDimZ {
		return nil
	}
	return c.At(lx, ly, lz)
}
