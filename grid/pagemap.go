package grid

// PageMap is a bitset over block offsets recording which blocks are
// allocated (spec §4.A "page map"). The word/bit-index split mirrors the
// occupancy bitset in the teacher's SPDSampler (fluid/spdsampler.go
// Occup/FlagIndexBit/GetIndexBit), generalized from a fixed particle count
// to an open-ended sparse set of block offsets via a map of words.
type PageMap struct {
	words map[uint64]uint64
	count int
}

func NewPageMap() *PageMap {
	return &PageMap{words: make(map[uint64]uint64)}
}

func wordIndex(offset BlockOffset) (word uint64, bit uint) {
	o := uint64(offset)
	return o >> 6, uint(o & 63)
}

// Set marks offset as allocated. Returns false if it was already set.
func (p *PageMap) Set(offset BlockOffset) bool {
	w, b := wordIndex(offset)
	mask := uint64(1) << b
	cur := p.words[w]
	if cur&mask != 0 {
		return false
	}
	p.words[w] = cur | mask
	p.count++
	return true
}

// Clear unmarks offset. Returns false if it was not set.
func (p *PageMap) Clear(offset BlockOffset) bool {
	w, b := wordIndex(offset)
	mask := uint64(1) << b
	cur, ok := p.words[w]
	if !ok || cur&mask == 0 {
		return false
	}
	p.words[w] = cur &^ mask
	p.count--
	return true
}

func (p *PageMap) IsSet(offset BlockOffset) bool {
	w, b := wordIndex(offset)
	return p.words[w]&(uint64(1)<<b) != 0
}

// Count returns the number of set bits (live blocks).
func (p *PageMap) Count() int {
	return p.count
}

// Stats reports committed-block count and an estimate of resident bytes,
// grounded on fluid/voxel.go's PrintStorageRequirements.
type Stats struct {
	Blocks       int
	ResidentCells int
	ResidentBytes int64
}

func (p *PageMap) Stats() Stats {
	return Stats{
		Blocks:        p.count,
		ResidentCells: p.count * CellsPerBlock,
		ResidentBytes: int64(p.count*CellsPerBlock) * int64(gridStateSize),
	}
}
