// Package mpmconfig loads the YAML-driven grid/engine/material
// configuration (spec §6 configuration table), in the idiom of
// pthm-soup/config/config.go: an embedded defaults.yaml merged with an
// optional user file via two successive yaml.Unmarshal passes into the
// same struct.
package mpmconfig

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andewx/mlsmpm/material"
	"github.com/andewx/mlsmpm/mpmerr"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Engine    EngineConfig    `yaml:"engine"`
	Materials MaterialsConfig `yaml:"materials"`
}

type GridConfig struct {
	Dx        float32 `yaml:"dx"`
	MaxBlocks int     `yaml:"max_blocks"`
}

type EngineConfig struct {
	UseMLSMPM       bool       `yaml:"use_mls_mpm"`
	UseLocks        bool       `yaml:"use_locks"`
	Gravity         [3]float32 `yaml:"gravity"`
	ParticleGravity bool       `yaml:"particle_gravity"`
}

// MaterialsConfig mirrors spec §6's configuration table: one block per
// material family, field names matching the table's option names.
type MaterialsConfig struct {
	Elastic  ElasticConfig  `yaml:"elastic"`
	Jelly    JellyConfig    `yaml:"jelly"`
	Linear   LinearConfig   `yaml:"linear"`
	Snow     SnowConfig     `yaml:"snow"`
	Sand     SandConfig     `yaml:"sand"`
	VonMises VonMisesConfig `yaml:"von_mises"`
	Visco    ViscoConfig    `yaml:"visco"`
	Water    WaterConfig    `yaml:"water"`
	Nonlocal NonlocalConfig `yaml:"nonlocal"`
}

type ElasticConfig struct {
	YoungsModulus float32 `yaml:"youngs_modulus"`
	PoissonRatio  float32 `yaml:"poisson_ratio"`
}

type JellyConfig struct {
	E  float32 `yaml:"e"`
	Nu float32 `yaml:"nu"`
}

type LinearConfig struct {
	E  float32 `yaml:"e"`
	Nu float32 `yaml:"nu"`
}

type SnowConfig struct {
	E         float32 `yaml:"e"`
	Nu        float32 `yaml:"nu"`
	Hardening float32 `yaml:"hardening"`
	ThetaC    float32 `yaml:"theta_c"`
	ThetaS    float32 `yaml:"theta_s"`
	MinJp     float32 `yaml:"min_jp"`
	MaxJp     float32 `yaml:"max_jp"`
}

type SandConfig struct {
	Lambda0       float32 `yaml:"lambda_0"`
	Mu0           float32 `yaml:"mu_0"`
	FrictionAngle float32 `yaml:"friction_angle"`
	Cohesion      float32 `yaml:"cohesion"`
	Beta          float32 `yaml:"beta"`
}

type VonMisesConfig struct {
	Lambda0     float32 `yaml:"lambda_0"`
	Mu0         float32 `yaml:"mu_0"`
	YieldStress float32 `yaml:"yield_stress"`
}

type ViscoConfig struct {
	E          float32 `yaml:"e"`
	Nu         float32 `yaml:"nu"`
	Eta        float32 `yaml:"eta"`
	Kappa      float32 `yaml:"kappa"`
	FlowStress float32 `yaml:"flow_stress"`
}

type WaterConfig struct {
	K     float32 `yaml:"k"`
	Gamma float32 `yaml:"gamma"`
}

type NonlocalConfig struct {
	SMod            float32 `yaml:"s_mod"`
	BMod            float32 `yaml:"b_mod"`
	AMat            float32 `yaml:"a_mat"`
	Dia             float32 `yaml:"dia"`
	Density         float32 `yaml:"density"`
	CriticalDensity float32 `yaml:"critical_density"`
	MuS             float32 `yaml:"mu_s"`
	Mu2             float32 `yaml:"mu_2"`
	I0              float32 `yaml:"i_0"`
	T0              float32 `yaml:"t_0"`
	BaseDeltaT      float32 `yaml:"base_delta_t"`
}

// Load reads the embedded defaults, then overlays path (if non-empty),
// and validates physical ranges (spec §7 InvalidConfig).
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, mpmerr.Wrap(mpmerr.InvalidConfig, "parsing embedded defaults", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, mpmerr.Wrap(mpmerr.InvalidConfig, fmt.Sprintf("reading config file %q", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, mpmerr.Wrap(mpmerr.InvalidConfig, fmt.Sprintf("parsing config file %q", path), err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects physically nonsensical parameters at init, without
// auto-correction (spec §7 InvalidConfig policy).
func (c *Config) Validate() error {
	if c.Grid.Dx <= 0 {
		return mpmerr.New(mpmerr.InvalidConfig, "grid.dx must be positive")
	}
	if c.Grid.MaxBlocks <= 0 {
		return mpmerr.New(mpmerr.InvalidConfig, "grid.max_blocks must be positive")
	}
	if c.Materials.Elastic.PoissonRatio <= -1 || c.Materials.Elastic.PoissonRatio >= 0.5 {
		return mpmerr.New(mpmerr.InvalidConfig, "materials.elastic.poisson_ratio must lie in (-1, 0.5)")
	}
	if c.Materials.Snow.ThetaC < 0 || c.Materials.Snow.ThetaS < 0 {
		return mpmerr.New(mpmerr.InvalidConfig, "materials.snow theta_c/theta_s must be non-negative")
	}
	if c.Materials.Snow.MinJp <= 0 || c.Materials.Snow.MaxJp < c.Materials.Snow.MinJp {
		return mpmerr.New(mpmerr.InvalidConfig, "materials.snow min_jp/max_jp out of range")
	}
	if c.Materials.Water.Gamma <= 0 {
		return mpmerr.New(mpmerr.InvalidConfig, "materials.water.gamma must be positive")
	}
	if c.Materials.Sand.FrictionAngle <= 0 || c.Materials.Sand.FrictionAngle >= 90 {
		return mpmerr.New(mpmerr.InvalidConfig, "materials.sand.friction_angle must lie in (0, 90) degrees")
	}
	return nil
}

// BuildMaterialTable constructs a material.Table from the loaded
// configuration, overriding material.NewDefaultTable()'s built-in
// parameters with whatever this Config specifies.
func (c *Config) BuildMaterialTable() material.Table {
	var t material.Table
	m := &c.Materials
	t[indexOfElastic] = material.NewElastic(material.ElasticParams{
		YoungsModulus: m.Elastic.YoungsModulus, PoissonRatio: m.Elastic.PoissonRatio,
	})
	t[indexOfJelly] = material.NewJelly(material.JellyParams{E: m.Jelly.E, Nu: m.Jelly.Nu})
	t[indexOfLinear] = material.NewLinear(material.LinearParams{E: m.Linear.E, Nu: m.Linear.Nu})
	t[indexOfSnow] = material.NewSnow(material.SnowParams{
		E: m.Snow.E, Nu: m.Snow.Nu, Hardening: m.Snow.Hardening,
		ThetaC: m.Snow.ThetaC, ThetaS: m.Snow.ThetaS,
		MinJp: m.Snow.MinJp, MaxJp: m.Snow.MaxJp,
	})
	t[indexOfSand] = material.NewSand(material.SandParams{
		Lambda0: m.Sand.Lambda0, Mu0: m.Sand.Mu0,
		FrictionAngle: m.Sand.FrictionAngle, Cohesion: m.Sand.Cohesion, Beta: m.Sand.Beta,
	})
	t[indexOfVonMises] = material.NewVonMises(material.VonMisesParams{
		Lambda0: m.VonMises.Lambda0, Mu0: m.VonMises.Mu0, YieldStress: m.VonMises.YieldStress,
	})
	t[indexOfVisco] = material.NewVisco(material.ViscoParams{
		E: m.Visco.E, Nu: m.Visco.Nu, Eta: m.Visco.Eta, Kappa: m.Visco.Kappa, FlowStress: m.Visco.FlowStress,
	})
	t[indexOfWater] = material.NewWater(material.WaterParams{Bulk: m.Water.K, Gamma: m.Water.Gamma})
	t[indexOfNonlocal] = material.NewNonlocal(material.NonlocalParams{
		ShearModulus: m.Nonlocal.SMod, BulkModulus: m.Nonlocal.BMod,
		A: m.Nonlocal.AMat, GrainDia: m.Nonlocal.Dia,
		Density: m.Nonlocal.Density, CriticalDensity: m.Nonlocal.CriticalDensity,
		MuS: m.Nonlocal.MuS, Mu2: m.Nonlocal.Mu2,
		I0: m.Nonlocal.I0, T0: m.Nonlocal.T0,
		BaseDeltaT: m.Nonlocal.BaseDeltaT,
	})
	return t
}

// These mirror mpparticle.MaterialTag's iota ordering without importing
// mpparticle (material.Table is already indexed by that tag's integer
// value; mpmconfig just needs the same constant numbering).
const (
	indexOfElastic = 0
	indexOfJelly   = 1
	indexOfLinear  = 2
	indexOfSnow    = 3
	indexOfSand    = 4
	indexOfVonMises = 5
	indexOfVisco   = 6
	indexOfWater   = 7
	indexOfNonlocal = 8
)
