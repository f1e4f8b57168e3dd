// Package mpparticle defines the particle record (spec §3 "MPMParticle")
// carried through the transfer engine: position, velocity, the APIC
// affine carriers, and the per-material mutable state the constitutive
// models in package material read and update. Per the redesign in spec
// §9 ("replace virtual inheritance with a tagged variant plus a
// vtable-free dispatch table... store material state inline in the
// particle record discriminated by tag"), every material's mutable
// fields live here rather than on a per-material subclass.
package mpparticle

import "github.com/andewx/mlsmpm/vector"

// MaterialTag discriminates which material.Material a particle is
// driven by; it indexes the engine's material table rather than naming
// a Go type (spec §9 redesign flag).
type MaterialTag uint8

const (
	TagElastic MaterialTag = iota
	TagJelly
	TagLinear
	TagSnow
	TagSand
	TagVonMises
	TagVisco
	TagWater
	TagNonlocal
)

func (t MaterialTag) String() string {
	switch t {
	case TagElastic:
		return "elastic"
	case TagJelly:
		return "jelly"
	case TagLinear:
		return "linear"
	case TagSnow:
		return "snow"
	case TagSand:
		return "sand"
	case TagVonMises:
		return "von_mises"
	case TagVisco:
		return "visco"
	case TagWater:
		return "water"
	case TagNonlocal:
		return "nonlocal"
	default:
		return "unknown"
	}
}

// Particle is one MLS-MPM particle (spec §3). Fields used only by a
// subset of materials (Jp, LogJp, JVol, GF, Tau, P, DgP, DgT, T) are
// harmless zero/identity values for materials that don't touch them;
// this is the inline-discriminated-union layout the redesign calls for
// rather than nine separate particle subtypes.
type Particle struct {
	Pos      vector.Vec3
	Velocity vector.Vec3
	Mass     float32
	Vol      float32

	ApicB vector.Mat3
	ApicC vector.Mat3

	// DgE is the elastic deformation gradient every material uses. DgP
	// and DgT (plastic, total) are used only by Nonlocal, which needs
	// the elastic/plastic split; other materials leave them at identity.
	DgE vector.Mat3
	DgP vector.Mat3
	DgT vector.Mat3

	// Jp is Snow's plastic volume ratio. LogJp is Sand's accumulated
	// plastic log-volume. JVol is Water's compression ratio "j".
	Jp    float32
	LogJp float32
	JVol  float32

	// GF, Tau, P, T are Nonlocal's granular-fluidity state: fluidity,
	// shear stress, pressure, and the Cauchy-like stress tensor. Visco
	// also mutates Tau as its relaxation threshold; the two materials
	// are mutually exclusive per particle so the field is safely shared.
	GF  float32
	Tau float32
	P   float32
	T   vector.Mat3

	States           uint32
	BoundaryNormal   vector.Vec3
	BoundaryDistance float32
	Sticky           bool

	Material MaterialTag
}

// New returns a particle with identity deformation gradients and a
// water-ratio of 1, the common initial state every material expects.
func New(pos vector.Vec3, mass, vol float32, tag MaterialTag) *Particle {
	return &Particle{
		Pos:      pos,
		Mass:     mass,
		Vol:      vol,
		DgE:      vector.Identity3(),
		DgP:      vector.Identity3(),
		DgT:      vector.Identity3(),
		JVol:     1,
		Material: tag,
	}
}
