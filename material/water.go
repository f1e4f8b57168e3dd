package material

import (
	"math"

	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// WaterParams configures the Tait-like EOS fluid model (spec §4.G
// "Water: equation of state").
type WaterParams struct {
	Bulk  float32 // k
	Gamma float32
}

func DefaultWaterParams() WaterParams {
	return WaterParams{Bulk: 5e4, Gamma: 7}
}

type Water struct {
	k, gamma float32
}

func NewWater(p WaterParams) *Water {
	return &Water{k: p.Bulk, gamma: p.Gamma}
}

func (m *Water) Name() string { return "water" }

func (m *Water) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	j := p.JVol
	pressure := m.k * (powF(j, -m.gamma) - 1)
	return vector.MatScale(vector.Identity3(), -pressure)
}

func (m *Water) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	j := p.JVol
	pressure := m.k * (powF(j, -m.gamma) - 1)
	// -vol*j*sigma with sigma = -p*I reduces to vol*j*p*I.
	return vector.MatScale(vector.Identity3(), p.Vol*j*pressure)
}

func (m *Water) PotentialEnergy(p *mpparticle.Particle) float32 {
	return 0
}

func (m *Water) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	trace := fInc.Trace() - 2
	p.JVol *= trace
	if p.JVol < 0.1 {
		p.JVol = 0.1
	}
	if p.JVol > 1 {
		return 1
	}
	return 0
}

func (m *Water) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	j := p.JVol
	if math.Abs(float64(j)) < 1e-20 {
		j = 1e-20
	}
	c2 := m.k * m.gamma / powF(j, m.gamma-1)
	if c2 < 1e-20 {
		c2 = 1e-20
	}
	c := float32(math.Sqrt(float64(c2)))
	u := vector.Length(p.Velocity)
	return dx / (c + u)
}

func (m *Water) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"J": float64(p.JVol)}
}

func powF(base, exp float32) float32 {
	return float32(math.Pow(float64(base), float64(exp)))
}
