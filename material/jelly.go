package material

import (
	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// JellyParams configures the fixed-corotated Jelly material (spec §4.G
// "Jelly / Snow: corotated fixed").
type JellyParams struct {
	E, Nu float32
}

func DefaultJellyParams() JellyParams {
	return JellyParams{E: 1e5, Nu: 0.3}
}

type Jelly struct {
	mu, lambda float32
}

func NewJelly(p JellyParams) *Jelly {
	mu, lambda := lameFromYoungsPoisson(p.E, p.Nu)
	return &Jelly{mu: mu, lambda: lambda}
}

func (m *Jelly) Name() string { return "jelly" }

func (m *Jelly) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	return corotatedP(p.DgE, m.mu, m.lambda)
}

func (m *Jelly) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	stress := m.FirstPiolaKirchhoff(p)
	return vector.MatScale(vector.Mul(stress, p.DgE.Transpose()), -p.Vol)
}

func (m *Jelly) PotentialEnergy(p *mpparticle.Particle) float32 {
	j := p.DgE.Det()
	r, _ := p.DgE.PolarDecompose()
	diff := vector.MatSub(p.DgE, r)
	var frob2 float32
	for _, v := range diff {
		frob2 += v * v
	}
	return (m.mu*frob2 + 0.5*m.lambda*(j-1)*(j-1)) * p.Vol
}

func (m *Jelly) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	p.DgE = vector.Mul(fInc, p.DgE)
	return 0
}

func (m *Jelly) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	return 0
}

func (m *Jelly) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"J": float64(p.DgE.Det())}
}
