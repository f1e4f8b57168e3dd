package material

import (
	"math"

	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// ViscoParams configures the rate-dependent corotated viscoplastic
// model (spec §4.G "Visco: matrix-exponential rate law").
type ViscoParams struct {
	E, Nu       float32
	Eta         float32 // viscosity / relaxation time scale
	Kappa       float32 // tau hardening rate
	FlowStress  float32 // yield threshold on the Frobenius strain norm
}

func DefaultViscoParams() ViscoParams {
	return ViscoParams{E: 1e5, Nu: 0.3, Eta: 10, Kappa: 1, FlowStress: 0.02}
}

type Visco struct {
	mu, lambda float32
	eta        float32
	kappa      float32
	flowStress float32
}

func NewVisco(p ViscoParams) *Visco {
	mu, lambda := lameFromYoungsPoisson(p.E, p.Nu)
	return &Visco{mu: mu, lambda: lambda, eta: p.Eta, kappa: p.Kappa, flowStress: p.FlowStress}
}

func (m *Visco) Name() string { return "visco" }

func (m *Visco) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	return corotatedP(p.DgE, m.mu, m.lambda)
}

func (m *Visco) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	stress := m.FirstPiolaKirchhoff(p)
	return vector.MatScale(vector.Mul(stress, p.DgE.Transpose()), -p.Vol)
}

func (m *Visco) PotentialEnergy(p *mpparticle.Particle) float32 {
	return 0
}

// approximateExponent computes exp(dt*d) for a small 3x3 rate matrix via
// scaling-and-squaring: halve dt until the step is small, Taylor-expand
// to third order, then square back up (original_source particles.cpp
// ViscoParticle::approximate_exponent).
func approximateExponent(dt float32, d vector.Mat3) vector.Mat3 {
	const maxHalvings = 6
	scaled := dt
	halvings := 0
	for halvings < maxHalvings && absF(scaled) > 0.25 {
		scaled /= 2
		halvings++
	}

	dm := vector.MatScale(d, scaled)
	dm2 := vector.Mul(dm, dm)
	dm3 := vector.Mul(dm2, dm)

	result := vector.MatAdd(vector.Identity3(), dm)
	result = vector.MatAdd(result, vector.MatScale(dm2, 0.5))
	result = vector.MatAdd(result, vector.MatScale(dm3, 1.0/6.0))

	for i := 0; i < halvings; i++ {
		result = vector.Mul(result, result)
	}
	return result
}

func (m *Visco) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	dt := float32(1.0 / 240.0)
	rate := vector.MatScale(vector.MatSub(fInc, vector.Identity3()), 1/dt)
	cdg := approximateExponent(dt, rate)
	p.DgE = vector.Mul(cdg, p.DgE)

	u, sigma, v := p.DgE.SVD()
	logSigma := vector.LogVec3(sigma)
	trace := logSigma[0] + logSigma[1] + logSigma[2]
	var dev vector.Vec3
	for i := 0; i < 3; i++ {
		dev[i] = logSigma[i] - trace/3
	}
	pnorm := float32(math.Sqrt(float64(dev[0]*dev[0] + dev[1]*dev[1] + dev[2]*dev[2])))

	threshold := m.flowStress + m.kappa*p.Tau
	if pnorm <= threshold {
		return 0
	}

	gamma := (pnorm - threshold) / (pnorm * m.eta)
	decay := 1 - gamma
	if decay < 0 {
		decay = 0
	}
	var relaxed vector.Vec3
	for i := 0; i < 3; i++ {
		relaxed[i] = trace/3 + dev[i]*decay
	}
	newSigma := vector.ExpVec3(relaxed)
	p.DgE = vector.Mul(vector.Mul(u, vector.DiagFromVec3(newSigma)), v.Transpose())
	p.Tau += m.kappa * gamma * pnorm
	return 1
}

func (m *Visco) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	return hyperelasticAllowedDT(p.DgE, p.Mass, p.Vol, m.mu, m.lambda, dx, p.Velocity)
}

func (m *Visco) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"tau": float64(p.Tau)}
}
