// Package material implements the constitutive-model contract (spec
// §4.G) and its nine concrete variants, grounded formula-for-formula on
// the original implementation's particle classes (see
// original_source/src/particles.cpp): Elastic, Jelly, Linear, Snow,
// Sand, VonMises, Visco, Water, Nonlocal.
package material

import (
	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// Material is the per-particle constitutive contract (spec §4.G). Every
// method is a pure function of the particle's current state except
// Plasticity, which is the one place a material is allowed to mutate
// the particle's deformation-gradient and material-specific fields.
type Material interface {
	// CalculateForce returns -vol * P * F^T, the stress contribution the
	// rasterize kernel scatters onto the grid. Must not mutate p.
	CalculateForce(p *mpparticle.Particle) vector.Mat3

	// Plasticity updates p's deformation gradient (and any
	// material-specific fields) given the deformation-gradient increment
	// fInc and the Laplacian of granular fluidity at p's position
	// (meaningful only to Nonlocal). Returns an implementation-defined
	// counter (spec §4.G).
	Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int

	// AllowedDT returns dx / (c_sound + |v|); 0 means "no constraint".
	AllowedDT(p *mpparticle.Particle, dx float32) float32

	FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3
	PotentialEnergy(p *mpparticle.Particle) float32
	Name() string

	// DebugInfo returns the material's current scalar diagnostics for
	// particle p (e.g. Water's J, Snow's Jp, Nonlocal's gf) — for an
	// external profiling/logging collaborator, not consumed internally.
	DebugInfo(p *mpparticle.Particle) map[string]float64
}

// Table is the vtable-free dispatch table keyed by mpparticle.MaterialTag
// (spec §9 redesign flag). Index i holds the Material driving every
// particle whose Material field equals MaterialTag(i).
type Table [9]Material

// NewDefaultTable builds a table with each material constructed from its
// default parameters; mpmconfig overrides entries from YAML.
func NewDefaultTable() Table {
	var t Table
	t[mpparticle.TagElastic] = NewElastic(DefaultElasticParams())
	t[mpparticle.TagJelly] = NewJelly(DefaultJellyParams())
	t[mpparticle.TagLinear] = NewLinear(DefaultLinearParams())
	t[mpparticle.TagSnow] = NewSnow(DefaultSnowParams())
	t[mpparticle.TagSand] = NewSand(DefaultSandParams())
	t[mpparticle.TagVonMises] = NewVonMises(DefaultVonMisesParams())
	t[mpparticle.TagVisco] = NewVisco(DefaultViscoParams())
	t[mpparticle.TagWater] = NewWater(DefaultWaterParams())
	t[mpparticle.TagNonlocal] = NewNonlocal(DefaultNonlocalParams())
	return t
}

// For resolves the Material driving p.
func (t Table) For(p *mpparticle.Particle) Material {
	return t[p.Material]
}

// lameFromYoungsPoisson derives (mu, lambda) from Young's modulus and
// Poisson's ratio, the conversion every elastic-family material uses at
// init (spec §6 config table: "youngs_modulus, poisson_ratio, E, nu").
func lameFromYoungsPoisson(e, nu float32) (mu, lambda float32) {
	mu = e / (2 * (1 + nu))
	lambda = e * nu / ((1 + nu) * (1 - 2*nu))
	return mu, lambda
}
