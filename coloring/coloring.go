// Package coloring implements the CPIC "cutting" state bits shared by
// grid.GridState and particle records, and the friction-projection
// formula both the rasterize and resample kernels call through (spec
// §4.H). It is grounded on the teacher's barycentric side-test in
// geometry/geometry.go (Triangle collision splitting space into sides of
// a surface), generalized here from a one-shot geometric test to a
// persistent per-rigid bit-tag carried on both grid nodes and particles.
package coloring

import "github.com/andewx/mlsmpm/vector"

// TagBits mirrors grid.TagBits (kept independent to avoid an import
// cycle: grid does not need to know about coloring's bit semantics, only
// that states is a uint32).
const TagBits = 24

// IDBits mirrors grid.IDBits.
const IDBits = 8

// tagMask covers the low TagBits bits, the per-rigid active/side pairs.
const tagMask = uint32(1)<<TagBits - 1

// idMask covers the high IDBits bits after shifting right by TagBits.
const idMask = uint32(1)<<IDBits - 1

// activeBit and sideBit return the bit position of rigid r's "active for
// r" and "side" bits (spec §4.H: "bit 2r+1 = active for r, bit 2r =
// side").
func activeBit(r int) uint32 { return 1 << uint(2*r+1) }
func sideBit(r int) uint32   { return 1 << uint(2*r) }

// SetTag returns states with rigid r's active/side pair set.
func SetTag(states uint32, r int, active, side bool) uint32 {
	states &^= activeBit(r) | sideBit(r)
	if active {
		states |= activeBit(r)
	}
	if side {
		states |= sideBit(r)
	}
	return states
}

// GetTag reports rigid r's active flag and side bit.
func GetTag(states uint32, r int) (active, side bool) {
	return states&activeBit(r) != 0, states&sideBit(r) != 0
}

// RigidID decodes the stored rigid-body id, or -1 if none claims this
// cell/particle (spec §3: "id = (states>>tag_bits) - 1").
func RigidID(states uint32) int {
	raw := (states >> TagBits) & idMask
	if raw == 0 {
		return -1
	}
	return int(raw) - 1
}

// SetRigidID returns states with its id field set to id (id < 0 clears
// it to "none").
func SetRigidID(states uint32, id int) uint32 {
	states &^= idMask << TagBits
	if id < 0 {
		return states
	}
	return states | (uint32(id+1)&idMask)<<TagBits
}

// CutMask computes the mask of §4.E/§4.H: the per-rigid side bits for
// which both the grid node and the particle are active, shifted down so
// bit 2r holds rigid r's comparison bit.
func CutMask(gridStates, particleStates uint32) uint32 {
	return (gridStates & particleStates & tagMask) >> 1
}

// IsCut reports whether any rigid body for which both gridStates and
// particleStates are active has them on opposite sides (spec §4.E: "If
// (g.states & mask) != (p.states & mask), the particle is on the far
// side of a rigid body relative to this node").
func IsCut(gridStates, particleStates uint32) bool {
	mask := CutMask(gridStates, particleStates)
	return (gridStates & mask) != (particleStates & mask)
}

// FrictionProject implements §4.H's friction_project(v, v_base, n, mu).
//
//   - mu == -1 (sticky): returns v_base.
//   - mu <= -2 (slip-with-friction): slip=true, mu = -mu-2.
//   - otherwise mu is used directly as the Coulomb coefficient with
//     slip=false (the "stick unless separating" branch).
func FrictionProject(v, vBase, n vector.Vec3, mu float32) vector.Vec3 {
	const sticky = -1
	if mu == sticky {
		return vBase
	}

	slip := false
	if mu <= -2 {
		slip = true
		mu = -mu - 2
	}

	rel := vector.Sub(v, vBase)
	vnScalar := vector.Dot(rel, n)
	vn := vector.Scale(n, vnScalar)
	vt := vector.Sub(rel, vn)

	vtLen := vector.Length(vt)
	const eps = 1e-12
	denom := vtLen
	if denom < eps {
		denom = eps
	}

	s := vtLen + minF(vnScalar, 0)*mu
	if s < 0 {
		s = 0
	}
	s /= denom

	result := vector.Scale(vt, s)
	if !slip {
		result = vector.Add(result, vector.Scale(n, maxF(0, vnScalar)))
	}
	return vector.Add(result, vBase)
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
