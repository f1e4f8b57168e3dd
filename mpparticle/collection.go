package mpparticle

import (
	"sort"

	"github.com/andewx/mlsmpm/grid"
	"github.com/andewx/mlsmpm/mpmerr"
)

// BlockMeta is the per-block entry of the sort (spec §3 "Block meta"):
// Offset into Collection.sorted where this block's particles begin, and
// how many particles the block owns.
type BlockMeta struct {
	Block grid.BlockOffset
	Start int
	Count int
}

// Collection owns the particle array plus the block-sorted index over
// it (spec §3 invariant 1: "sum of particle_count == number of
// particles after each re-sort"). The engine passes All() to
// Rasterize/Resample, which group particles by block themselves; Sorted()
// is not read by the transfer phases.
type Collection struct {
	particles []*Particle
	sorted    []*Particle
	meta      []BlockMeta
	dx        float32
}

// NewCollection returns an empty collection over a grid with cell size
// dx (needed to map a particle's position to its owning block).
func NewCollection(dx float32) *Collection {
	return &Collection{dx: dx}
}

// Add appends p to the collection. The block sort is not updated until
// Resort is called.
func (c *Collection) Add(p *Particle) {
	c.particles = append(c.particles, p)
}

// Len returns the number of particles in the collection.
func (c *Collection) Len() int { return len(c.particles) }

// All returns the unsorted backing slice. Callers must not retain it
// across a Resort.
func (c *Collection) All() []*Particle { return c.particles }

// Sorted returns the particle slice in block-linear order, valid until
// the next Resort.
func (c *Collection) Sorted() []*Particle { return c.sorted }

// Meta returns the block-meta table built by the last Resort.
func (c *Collection) Meta() []BlockMeta { return c.meta }

// ownerBlock returns the block offset containing the cell p's position
// currently occupies (floor(pos/dx) per axis), not its stencil base cell;
// block-sort groups particles by that cell.
func ownerBlock(p *Particle, dx float32) grid.BlockOffset {
	cell := grid.IVec3{
		int32(floorDiv32(p.Pos[0] / dx)),
		int32(floorDiv32(p.Pos[1] / dx)),
		int32(floorDiv32(p.Pos[2] / dx)),
	}
	return grid.CoordToBlockOffset(cell)
}

func floorDiv32(x float32) int64 {
	i := int64(x)
	if x < 0 && float32(i) != x {
		i--
	}
	return i
}

// Resort rebuilds the block-linear ordering and the block-meta table
// (spec §3 "Block meta"). Must be called once per step after particle
// positions have been advanced and before the next Rasterize.
func (c *Collection) Resort() {
	n := len(c.particles)
	c.sorted = make([]*Particle, n)
	copy(c.sorted, c.particles)

	sort.SliceStable(c.sorted, func(i, j int) bool {
		bi := ownerBlock(c.sorted[i], c.dx)
		bj := ownerBlock(c.sorted[j], c.dx)
		return bi < bj
	})

	c.meta = c.meta[:0]
	i := 0
	for i < n {
		b := ownerBlock(c.sorted[i], c.dx)
		start := i
		for i < n && ownerBlock(c.sorted[i], c.dx) == b {
			i++
		}
		c.meta = append(c.meta, BlockMeta{Block: b, Start: start, Count: i - start})
	}
}

// CheckInvariant verifies spec §3 invariant 1 (block-meta counts sum to
// the particle total) and returns an *mpmerr.Error of kind
// InternalInvariant if violated.
func (c *Collection) CheckInvariant() error {
	sum := 0
	for _, m := range c.meta {
		sum += m.Count
	}
	if sum != len(c.particles) {
		return mpmerr.New(mpmerr.InternalInvariant, "block-meta particle_count does not sum to particle total")
	}
	return nil
}
