package grid

// Block offsets are bit-interleaved (Morton-style) encodings of block
// lattice coordinates, so LinearToCoord/CoordToBlockOffset reduce to pure
// bit manipulation (spec §4.A). The interleave here is a straightforward
// per-bit loop rather than the magic-constant expand-by-shifting form (cf.
// other_examples/VoxelsPlace-VOPL morton.go), generalized from per-voxel to
// per-block granularity and widened to 64 bits.

// coordBits is the number of bits of (biased, non-negative) block
// coordinate carried per axis. 20 bits per axis, 60 bits total, comfortably
// inside a uint64 and large enough that a simulated domain will never
// exhaust it.
const coordBits = 20

// coordBias keeps block coordinates non-negative before interleaving;
// coordinates are small relative to this (a domain spanning 2^19 blocks in
// either direction per axis is already far larger than any terrain/rover
// scenario in scope here).
const coordBias = int32(1) << (coordBits - 1)

func interleave3(x, y, z uint32) uint64 {
	var code uint64
	for i := 0; i < coordBits; i++ {
		code |= uint64((x>>uint(i))&1) << uint(3*i)
		code |= uint64((y>>uint(i))&1) << uint(3*i+1)
		code |= uint64((z>>uint(i))&1) << uint(3*i+2)
	}
	return code
}

func deinterleave3(code uint64) (x, y, z uint32) {
	for i := 0; i < coordBits; i++ {
		x |= uint32((code>>uint(3*i))&1) << uint(i)
		y |= uint32((code>>uint(3*i+1))&1) << uint(i)
		z |= uint32((code>>uint(3*i+2))&1) << uint(i)
	}
	return x, y, z
}

// BlockOffset is the 64-bit linear identity of a block: the bit-interleave
// of its (biased) lattice coordinates.
type BlockOffset uint64

// CoordToBlockOffset returns the offset of the block containing cell
// coordinate c.
func CoordToBlockOffset(c IVec3) BlockOffset {
	bx := floorDiv(c[0], BlockDimX)
	by := floorDiv(c[1], BlockDimY)
	bz := floorDiv(c[2], BlockDimZ)
	return blockCoordToOffset(bx, by, bz)
}

func blockCoordToOffset(bx, by, bz int32) BlockOffset {
	ux := uint32(bx + coordBias)
	uy := uint32(by + coordBias)
	uz := uint32(bz + coordBias)
	return BlockOffset(interleave3(ux, uy, uz))
}

// LinearToCoord decodes a block offset back to that block's base cell
// coordinate (the corner nearest the origin).
func LinearToCoord(offset BlockOffset) IVec3 {
	ux, uy, uz := deinterleave3(uint64(offset))
	bx := int32(ux) - coordBias
	by := int32(uy) - coordBias
	bz := int32(uz) - coordBias
	return IVec3{bx * BlockDimX, by * BlockDimY, bz * BlockDimZ}
}

// NeighborOffset returns the offset of the block adjacent to the block at
// offset in the given direction (each component -1, 0, or 1).
func NeighborOffset(offset BlockOffset, dx, dy, dz int32) BlockOffset {
	base := LinearToCoord(offset)
	bx := base[0]/BlockDimX + dx
	by := base[1]/BlockDimY + dy
	bz := base[2]/BlockDimZ + dz
	return blockCoordToOffset(bx, by, bz)
}

// blockColor returns the 0-7 coloring index used by the scheduler: the
// block coordinate's parity in each axis (spec §4.B: "8-color graph
// partitioning of blocks by block coordinates modulo 2 in each axis").
func blockColor(offset BlockOffset) int {
	base := LinearToCoord(offset)
	bx := (base[0] / BlockDimX) & 1
	by := (base[1] / BlockDimY) & 1
	bz := (base[2] / BlockDimZ) & 1
	return int(bx) | int(by)<<1 | int(bz)<<2
}
