package material

import (
	"math"

	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// SandParams configures the Drucker-Prager granular model (spec §4.G
// "Sand: Drucker-Prager return mapping").
type SandParams struct {
	Lambda0, Mu0  float32
	FrictionAngle float32 // degrees
	Cohesion      float32
	Beta          float32
}

func DefaultSandParams() SandParams {
	return SandParams{
		Lambda0: 204057, Mu0: 136038,
		FrictionAngle: 30,
		Cohesion:      0,
		Beta:          1,
	}
}

type Sand struct {
	lambda0, mu0 float32
	alpha        float32
	cohesion     float32
	beta         float32
}

func NewSand(p SandParams) *Sand {
	phi := float64(p.FrictionAngle) * math.Pi / 180
	sinPhi := math.Sin(phi)
	alpha := math.Sqrt(2.0/3.0) * 2 * sinPhi / (3 - sinPhi)
	return &Sand{
		lambda0: p.Lambda0, mu0: p.Mu0,
		alpha:    float32(alpha),
		cohesion: p.Cohesion,
		beta:     p.Beta,
	}
}

func (m *Sand) Name() string { return "sand" }

func (m *Sand) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	return stvkHenckyP(p.DgE, m.mu0, m.lambda0)
}

func (m *Sand) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	stress := m.FirstPiolaKirchhoff(p)
	return vector.MatScale(vector.Mul(stress, p.DgE.Transpose()), -p.Vol)
}

func (m *Sand) PotentialEnergy(p *mpparticle.Particle) float32 {
	return 0
}

// project implements the Drucker-Prager return mapping (original_source
// particles.cpp SandParticle::project): given principal stretches sigma
// (singular values; the log is taken here) and cohesion-shifted yield
// surface, returns the projected
// principal stretches and updates the particle's persisted logJp.
func (m *Sand) project(sigma vector.Vec3, p *mpparticle.Particle) vector.Vec3 {
	var epsilon vector.Vec3
	for i := 0; i < 3; i++ {
		epsilon[i] = float32(math.Log(math.Max(math.Abs(float64(sigma[i])), 1e-4))) - m.cohesion
	}
	tr := epsilon[0] + epsilon[1] + epsilon[2] + p.LogJp
	var epsilonHat vector.Vec3
	for i := 0; i < 3; i++ {
		epsilonHat[i] = epsilon[i] - tr/3
	}
	epsilonHatNorm := float32(math.Sqrt(float64(
		epsilonHat[0]*epsilonHat[0] + epsilonHat[1]*epsilonHat[1] + epsilonHat[2]*epsilonHat[2])))

	if tr >= 0 {
		// Case II: fully expanded, no cohesive resistance left.
		p.LogJp = m.beta*(epsilon[0]+epsilon[1]+epsilon[2]) + p.LogJp
		c := float32(math.Exp(float64(m.cohesion)))
		return vector.Vec3{c, c, c}
	}

	p.LogJp = 0
	if epsilonHatNorm <= 1e-20 || m.alpha <= 0 {
		var out vector.Vec3
		for i := 0; i < 3; i++ {
			out[i] = float32(math.Exp(float64(epsilon[i] + m.cohesion)))
		}
		return out
	}

	deltaGamma := epsilonHatNorm + (3*m.lambda0+2*m.mu0)/(2*m.mu0)*tr*m.alpha
	if deltaGamma <= 0 {
		// Case III: inside the yield cone, elastic.
		var out vector.Vec3
		for i := 0; i < 3; i++ {
			out[i] = float32(math.Exp(float64(epsilon[i] + m.cohesion)))
		}
		return out
	}

	// Case I: project radially onto the cone.
	var h vector.Vec3
	scale := deltaGamma / epsilonHatNorm
	for i := 0; i < 3; i++ {
		h[i] = epsilon[i] - scale*epsilonHat[i] + m.cohesion
	}
	var out vector.Vec3
	for i := 0; i < 3; i++ {
		out[i] = float32(math.Exp(float64(h[i])))
	}
	return out
}

func (m *Sand) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	p.DgE = vector.Mul(fInc, p.DgE)
	u, sigma, v := p.DgE.SVD()
	projected := m.project(sigma, p)
	p.DgE = vector.Mul(vector.Mul(u, vector.DiagFromVec3(projected)), v.Transpose())
	return 1
}

func (m *Sand) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	return hyperelasticAllowedDT(p.DgE, p.Mass, p.Vol, m.mu0, m.lambda0, dx, p.Velocity)
}

func (m *Sand) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"log_jp": float64(p.LogJp)}
}
