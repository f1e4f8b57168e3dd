package material

import (
	"math"

	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// ElasticParams configures the StVK-Hencky elastic material (spec §4.G
// "Elastic (StVK-Hencky)").
type ElasticParams struct {
	YoungsModulus float32
	PoissonRatio  float32
}

func DefaultElasticParams() ElasticParams {
	return ElasticParams{YoungsModulus: 5e3, PoissonRatio: 0.4}
}

type Elastic struct {
	mu, lambda float32
	youngs     float32
}

func NewElastic(p ElasticParams) *Elastic {
	mu, lambda := lameFromYoungsPoisson(p.YoungsModulus, p.PoissonRatio)
	return &Elastic{mu: mu, lambda: lambda, youngs: p.YoungsModulus}
}

func (m *Elastic) Name() string { return "elastic" }

func (m *Elastic) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	return stvkHenckyP(p.DgE, m.mu, m.lambda)
}

func (m *Elastic) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	stress := m.FirstPiolaKirchhoff(p)
	return vector.MatScale(vector.Mul(stress, p.DgE.Transpose()), -p.Vol)
}

func (m *Elastic) PotentialEnergy(p *mpparticle.Particle) float32 {
	_, sigma, _ := p.DgE.SVD()
	var logSigma vector.Vec3
	for i := 0; i < 3; i++ {
		logSigma[i] = float32(math.Log(math.Abs(float64(sigma[i]))))
	}
	var logSigmaSq float32
	for i := 0; i < 3; i++ {
		logSigmaSq += logSigma[i] * logSigma[i]
	}
	sumLog := logSigma[0] + logSigma[1] + logSigma[2]
	return (m.mu*logSigmaSq + 0.5*m.lambda*sumLog*sumLog) * p.Vol
}

func (m *Elastic) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	p.DgE = vector.Mul(fInc, p.DgE)
	return 0
}

func (m *Elastic) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	return hyperelasticAllowedDT(p.DgE, p.Mass, p.Vol, m.mu, m.lambda, dx, p.Velocity)
}

func (m *Elastic) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"youngs_modulus": float64(m.youngs)}
}
