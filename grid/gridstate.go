// Package grid implements the sparse paged grid (spec §4.A), its
// block-coloring scheduler (§4.B), and the block-local halo cache (§4.D).
package grid

import (
	"unsafe"

	"github.com/andewx/mlsmpm/vector"
)

// Dim is the simulation dimensionality. The engine targets 3D exclusively;
// a dim-2 build is not supported by this package.
const Dim = 3

// Block dimensions: powers of two so LinearToCoord/CoordToBlockOffset stay
// pure bit manipulation. 4x4x4 gives a 64-cell block matching a 64-byte
// GridState (spec §4.B: "typically 4x4x4 for a 64-byte cell with a 64-cell
// block").
const (
	BlockDimX = 4
	BlockDimY = 4
	BlockDimZ = 4

	blockShiftX = 2
	blockShiftY = 2
	blockShiftZ = 2

	blockMaskX = BlockDimX - 1
	blockMaskY = BlockDimY - 1
	blockMaskZ = BlockDimZ - 1

	CellsPerBlock = BlockDimX * BlockDimY * BlockDimZ
)

// MaxRigidBodies and the states bit layout (spec §6 compile-time constants).
const (
	MaxRigidBodies = 12
	TagBits        = 24 // 2*MaxRigidBodies low bits: per-rigid side tags
	IDBits         = 8
)

// MLSKernelOrder and UseMLSMPM must be preserved across implementations
// per spec §6.
const (
	MLSKernelOrder = 2
	UseMLSMPM      = true
)

// IVec3 is an integer lattice coordinate (cell or block granularity
// depending on context).
type IVec3 [3]int32

func (c IVec3) Add(o IVec3) IVec3 {
	return IVec3{c[0] + o[0], c[1] + o[1], c[2] + o[2]}
}

// GridState is one fixed-size record per grid node. Its size must be a
// power of two (64 bytes with the field layout below) for cache alignment;
// see gridstate_test.go for the size assertion. Field widths are mixed
// float32/float64 deliberately (spec §9) to preserve replay compatibility.
type GridState struct {
	// VelocityAndMass holds momentum (lanes 0..Dim-1) and mass (lane 3)
	// during P2G; after per-block normalization the first lanes hold
	// velocity.
	VelocityAndMass vector.Vec4

	// Distance is the signed distance to the nearest rigid surface, used
	// by CPIC coloring. Populated by an external collider/CDF builder;
	// this package only stores and reads it.
	Distance float64

	// GranularFluidity and Aux are node-scalar fields the Nonlocal
	// material uses to carry the non-local diffusion term.
	GranularFluidity float32
	Aux              [4]float32

	// States is the packed per-rigid coloring state: low TagBits bits
	// are 2*r side-tag pairs, the remaining high bits are (rigid_id + 1),
	// 0 meaning "no rigid claims this cell". See the coloring package for
	// the encode/decode helpers.
	States uint32

	// ParticleCount bounds this block slot's particle range; set by the
	// per-step particle sort/bucketing pass, read by the scheduler.
	ParticleCount uint32

	// Lock is a spinlock word used only when the engine is built with
	// use_locks instead of coloring (spec §5).
	Lock uint32

	// Flags is 16 reserved bits for forward compatibility.
	Flags uint16
}

// gridStateSize is computed once for PageMap.Stats' resident-byte estimate.
var gridStateSize = int(unsafe.Sizeof(GridState{}))

// LocalIndex returns the block-linear index of a cell-local coordinate
// (each component in [0, BlockDim*)).
func LocalIndex(lx, ly, lz int32) int {
	return int(lx) + int(ly)*BlockDimX + int(lz)*BlockDimX*BlockDimY
}

// SplitCoord decomposes a world cell coordinate into its owning block's
// base coordinate and this cell's local coordinate within that block.
func SplitCoord(c IVec3) (blockBase IVec3, local IVec3) {
	bx := floorDiv(c[0], BlockDimX)
	by := floorDiv(c[1], BlockDimY)
	bz := floorDiv(c[2], BlockDimZ)
	blockBase = IVec3{bx * BlockDimX, by * BlockDimY, bz * BlockDimZ}
	local = IVec3{c[0] - blockBase[0], c[1] - blockBase[1], c[2] - blockBase[2]}
	return blockBase, local
}

// floorDiv performs floored integer division by a positive power-of-two
// divisor, correct for negative dividends (unlike Go's truncating /).
func floorDiv(a, divisor int32) int32 {
	if a >= 0 {
		return a / divisor
	}
	return -((-a + divisor - 1) / divisor)
}
