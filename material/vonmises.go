package material

import (
	"math"

	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// VonMisesParams configures the deviatoric von Mises return-mapping
// model (spec §4.G "VonMises: deviatoric return mapping").
type VonMisesParams struct {
	Lambda0, Mu0 float32
	YieldStress  float32
}

func DefaultVonMisesParams() VonMisesParams {
	return VonMisesParams{Lambda0: 204057, Mu0: 136038, YieldStress: 45000}
}

type VonMises struct {
	lambda0, mu0 float32
	yieldStress  float32
}

func NewVonMises(p VonMisesParams) *VonMises {
	return &VonMises{lambda0: p.Lambda0, mu0: p.Mu0, yieldStress: p.YieldStress}
}

func (m *VonMises) Name() string { return "von_mises" }

func (m *VonMises) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	return stvkHenckyP(p.DgE, m.mu0, m.lambda0)
}

func (m *VonMises) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	stress := m.FirstPiolaKirchhoff(p)
	return vector.MatScale(vector.Mul(stress, p.DgE.Transpose()), -p.Vol)
}

func (m *VonMises) PotentialEnergy(p *mpparticle.Particle) float32 {
	return 0
}

func (m *VonMises) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	p.DgE = vector.Mul(fInc, p.DgE)
	u, sigma, v := p.DgE.SVD()

	epsilon := vector.LogVec3(sigma)
	trace := epsilon[0] + epsilon[1] + epsilon[2]
	var epsilonHat vector.Vec3
	for i := 0; i < 3; i++ {
		epsilonHat[i] = epsilon[i] - trace/3
	}
	epsilonHatNorm2 := epsilonHat[0]*epsilonHat[0] + epsilonHat[1]*epsilonHat[1] + epsilonHat[2]*epsilonHat[2]

	deltaGamma := epsilonHatNorm2 - m.yieldStress/(2*m.mu0)
	if deltaGamma <= 0 {
		return 0
	}

	epsilonHatNorm := float32(math.Sqrt(float64(epsilonHatNorm2)))
	var h vector.Vec3
	scale := deltaGamma / epsilonHatNorm
	for i := 0; i < 3; i++ {
		h[i] = epsilon[i] - scale*epsilonHat[i]
	}
	newSigma := vector.ExpVec3(h)
	p.DgE = vector.Mul(vector.Mul(u, vector.DiagFromVec3(newSigma)), v.Transpose())
	return 1
}

func (m *VonMises) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	return hyperelasticAllowedDT(p.DgE, p.Mass, p.Vol, m.mu0, m.lambda0, dx, p.Velocity)
}

func (m *VonMises) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"yield_stress": float64(m.yieldStress)}
}
