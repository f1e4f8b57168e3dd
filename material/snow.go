package material

import (
	"math"

	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// SnowParams configures Snow's corotated material with plastic
// hardening (spec §4.G: "Snow adds plastic-hardening by clamping Sigma
// into [1-theta_c, 1+theta_s] and updating Jp").
type SnowParams struct {
	E, Nu               float32
	Hardening           float32
	ThetaC, ThetaS      float32
	MinJp, MaxJp        float32
}

func DefaultSnowParams() SnowParams {
	return SnowParams{
		E: 1.4e5, Nu: 0.2,
		Hardening: 10,
		ThetaC:    2.5e-2, ThetaS: 7.5e-3,
		MinJp: 0.6, MaxJp: 20,
	}
}

type Snow struct {
	mu0, lambda0 float32
	hardening    float32
	thetaC       float32
	thetaS       float32
	minJp        float32
	maxJp        float32
}

func NewSnow(p SnowParams) *Snow {
	mu0, lambda0 := lameFromYoungsPoisson(p.E, p.Nu)
	return &Snow{
		mu0: mu0, lambda0: lambda0,
		hardening: p.Hardening,
		thetaC:    p.ThetaC, thetaS: p.ThetaS,
		minJp: p.MinJp, maxJp: p.MaxJp,
	}
}

func (m *Snow) Name() string { return "snow" }

// lameParameters returns the hardening-scaled (mu, lambda) per spec
// §4.G: mu = mu0*e, lambda = lambda0*e, e = exp(hardening*(1-Jp)).
func (m *Snow) lameParameters(jp float32) (mu, lambda float32) {
	e := float32(math.Exp(float64(m.hardening * (1 - jp))))
	return m.mu0 * e, m.lambda0 * e
}

func (m *Snow) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	mu, lambda := m.lameParameters(p.Jp)
	return corotatedP(p.DgE, mu, lambda)
}

func (m *Snow) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	stress := m.FirstPiolaKirchhoff(p)
	return vector.MatScale(vector.Mul(stress, p.DgE.Transpose()), -p.Vol)
}

func (m *Snow) PotentialEnergy(p *mpparticle.Particle) float32 {
	// Ancillary; the original does not override this for Snow.
	return 0
}

func (m *Snow) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	p.DgE = vector.Mul(fInc, p.DgE)

	u, sigma, v := p.DgE.SVD()
	origDet := sigma[0] * sigma[1] * sigma[2]

	var clamped vector.Vec3
	for i := 0; i < 3; i++ {
		clamped[i] = clampF(sigma[i], 1-m.thetaC, 1+m.thetaS)
	}
	newDet := clamped[0] * clamped[1] * clamped[2]
	p.DgE = vector.Mul(vector.Mul(u, vector.DiagFromVec3(clamped)), v.Transpose())

	jpNew := p.Jp * origDet / newDet
	p.Jp = clampF(jpNew, m.minJp, m.maxJp)
	return 0
}

func (m *Snow) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	mu, lambda := m.lameParameters(p.Jp)
	return hyperelasticAllowedDT(p.DgE, p.Mass, p.Vol, mu, lambda, dx, p.Velocity)
}

func (m *Snow) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"Jp": float64(p.Jp)}
}
