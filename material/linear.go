package material

import (
	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// LinearParams configures small-strain linear elasticity (spec §4.G
// config table: "E, nu" for the elastic family).
type LinearParams struct {
	E, Nu float32
}

func DefaultLinearParams() LinearParams {
	return LinearParams{E: 1e5, Nu: 0.3}
}

type Linear struct {
	mu, lambda float32
}

func NewLinear(p LinearParams) *Linear {
	mu := p.E / (2 * (1 + p.Nu))
	lambda := p.E * p.Nu / ((1 + p.Nu) * (1 - 2*p.Nu))
	return &Linear{mu: mu, lambda: lambda}
}

func (m *Linear) Name() string { return "linear" }

func (m *Linear) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	sym := vector.MatSub(vector.MatAdd(p.DgE, p.DgE.Transpose()), vector.MatScale(vector.Identity3(), 2))
	trace := p.DgE.Trace() - 3
	return vector.MatAdd(vector.MatScale(sym, m.mu), vector.MatScale(vector.Identity3(), m.lambda*trace))
}

func (m *Linear) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	stress := m.FirstPiolaKirchhoff(p)
	return vector.MatScale(vector.Mul(stress, p.DgE.Transpose()), -p.Vol)
}

func (m *Linear) PotentialEnergy(p *mpparticle.Particle) float32 {
	e := vector.MatSub(vector.MatScale(vector.MatAdd(p.DgE, p.DgE.Transpose()), 0.5), vector.Identity3())
	var frob2 float32
	for _, v := range e {
		frob2 += v * v
	}
	trace := e.Trace()
	return p.Vol * (m.mu*frob2 + 0.5*m.lambda*trace*trace)
}

func (m *Linear) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	p.DgE = vector.Mul(fInc, p.DgE)
	return 0
}

func (m *Linear) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	return 0
}

func (m *Linear) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"trace_strain": float64(p.DgE.Trace() - 3)}
}
