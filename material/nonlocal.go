package material

import (
	"math"

	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/vector"
)

// NonlocalParams configures the nonlocal granular fluidity (NGF)
// rheology (spec §4.G "Nonlocal: granular fluidity / NGF rheology",
// §6 configuration table), field-for-field matching
// NonlocalParticle::initialize (original_source/src/particles.cpp).
type NonlocalParams struct {
	ShearModulus    float32 // S_mod
	BulkModulus     float32 // B_mod
	A               float32 // A_mat, nonlocal amplitude
	GrainDia        float32 // dia
	Density         float32 // density (rho_s), true grain density
	CriticalDensity float32 // critical_density (rho_c), true density
	MuS             float32 // mu_s, static friction coefficient
	Mu2             float32 // mu_2, dense-flow friction ceiling
	I0              float32 // I_0, inertial-number scale
	T0              float32 // t_0, fluidity relaxation time
	BaseDeltaT      float32 // base_delta_t, this material's own kinematics step
}

func DefaultNonlocalParams() NonlocalParams {
	return NonlocalParams{
		ShearModulus: 3448.3, BulkModulus: 33333,
		A: 0.48, GrainDia: 0.005,
		Density: 2550, CriticalDensity: 2000,
		MuS: 0.3819, Mu2: 0.6435,
		I0: 0.278, T0: 1e-3,
		BaseDeltaT: 1e-4,
	}
}

// nonlocalSoundMu and nonlocalSoundLambda are the Lame-like constants
// AllowedDT's sound-speed estimate uses. The original hardcodes these
// two numbers directly in get_allowed_dt, independent of S_mod/B_mod
// (particles.cpp, "check it" comment) - kept as named constants here
// rather than re-declared magic numbers inline.
const (
	nonlocalSoundMu     = float32(136038)
	nonlocalSoundLambda = float32(204057)
)

type Nonlocal struct {
	shear, bulk float32
	a, dia      float32
	rhoS, rhoC  float32
	muS, mu2    float32
	i0, t0      float32
	baseDt      float32
}

func NewNonlocal(p NonlocalParams) *Nonlocal {
	return &Nonlocal{
		shear: p.ShearModulus, bulk: p.BulkModulus,
		a: p.A, dia: p.GrainDia,
		rhoS: p.Density, rhoC: p.CriticalDensity,
		muS: p.MuS, mu2: p.Mu2,
		i0: p.I0, t0: p.T0,
		baseDt: p.BaseDeltaT,
	}
}

func (m *Nonlocal) Name() string { return "nonlocal" }

func (m *Nonlocal) FirstPiolaKirchhoff(p *mpparticle.Particle) vector.Mat3 {
	return p.T
}

func (m *Nonlocal) CalculateForce(p *mpparticle.Particle) vector.Mat3 {
	return vector.MatScale(p.T, -p.Vol)
}

func (m *Nonlocal) PotentialEnergy(p *mpparticle.Particle) float32 {
	return 0
}

// mandelStress returns (Me, Re, devLogSigma, traceLogSigma) for the
// elastic deformation dgEl = dgT*dgP^-1, built from the log-strain Ee in
// the rotated frame (original_source particles.cpp NonlocalParticle's
// use of the Hencky/Mandel stress measure for granular elasticity).
func mandelStress(dgEl vector.Mat3, shear, bulk float32) (me, re vector.Mat3, dev vector.Vec3, trace float32) {
	u, sigma, v := dgEl.SVD()
	logSigma := vector.LogVec3(sigma)
	trace = logSigma[0] + logSigma[1] + logSigma[2]
	for i := 0; i < 3; i++ {
		dev[i] = logSigma[i] - trace/3
	}
	ee0 := vector.Mul(vector.Mul(v, vector.DiagFromVec3(dev)), v.Transpose())
	me = vector.MatAdd(vector.MatScale(ee0, 2*shear), vector.MatScale(vector.Identity3(), bulk*trace))
	re = vector.Mul(u, v.Transpose())
	return
}

// kinematicsEquivalentShearRate is the original's "kinematics" lambda:
// it treats fInc as the velocity-gradient carrier C over one step of
// length dt (L = (fInc-I)/dt), takes the symmetric part D, and returns
// sqrt(2)*||D|| as the equivalent shear strain rate. D is kept full
// (not deviatoric) - the original's own comment notes the deviatoric
// version "makes flow unstable".
func kinematicsEquivalentShearRate(fInc vector.Mat3, dt float32) float32 {
	if dt == 0 {
		return 0
	}
	l := vector.MatScale(vector.MatSub(fInc, vector.Identity3()), 1/dt)
	d := vector.MatScale(vector.MatAdd(l, l.Transpose()), 0.5)
	var sumSq float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := d.At(i, j)
			sumSq += v * v
		}
	}
	return 1.414 * float32(math.Sqrt(float64(sumSq)))
}

func frobeniusNorm(m vector.Mat3) float32 {
	var sumSq float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := m.At(i, j)
			sumSq += v * v
		}
	}
	return float32(math.Sqrt(float64(sumSq)))
}

// Plasticity implements the NGF (nonlocal granular fluidity) return
// mapping (particles.cpp NonlocalParticle::plasticity, lines ~935-1060):
// a disconnected branch below critical density/zero pressure that
// sets gf to the pure-kinematics estimate, and a dense branch
// that integrates gf via a local + nonlocal fluidity law and derives a
// viscoplastic flow direction from the trial Mandel stress. delta_t
// inside the original is the particle's own configured base_delta_t,
// not the engine's actual step size - both branches use m.baseDt.
func (m *Nonlocal) Plasticity(p *mpparticle.Particle, fInc vector.Mat3, laplacianGF float32) int {
	const eps = float32(1e-20)
	pN := p.P // p @ n, captured before this step overwrites p.P

	p.DgT = vector.Mul(fInc, p.DgT)

	detDgP := p.DgP.Det()
	if absF(detDgP) < eps {
		p.DgP = vector.Identity3()
	}
	dgEl := vector.Mul(p.DgT, p.DgP.Inverse())

	me, re, _, _ := mandelStress(dgEl, m.shear, m.bulk)
	pressure := -bulkTrace(me) / 3
	p.P = pressure

	detDgT := p.DgT.Det()
	if absF(detDgT) < eps {
		detDgT = eps
	}
	rho0 := p.Mass / p.Vol
	rho := rho0 / absF(detDgT)

	if rho < m.rhoC || pressure <= 0 {
		p.T = vector.Mat3{}
		p.DgP = p.DgT
		p.P = 0
		p.GF = maxF(kinematicsEquivalentShearRate(fInc, m.baseDt)/m.mu2, 0)
		return 0
	}

	mu := minF(p.Tau/maxF(pN, eps), m.mu2-eps)
	gdotLoc := -((m.muS-mu)*p.GF) -
		((m.mu2-m.muS)/m.i0)*float32(math.Sqrt(float64(m.rhoS*m.dia*m.dia/maxF(pN, eps))))*mu*p.GF*p.GF
	gdotNonloc := m.a * m.a * m.dia * m.dia * laplacianGF
	p.GF = maxF(m.baseDt*(gdotLoc+gdotNonloc)/m.t0+p.GF, 0)

	me0 := vector.MatAdd(me, vector.MatScale(vector.Identity3(), pressure))
	tauTrial := 0.707 * frobeniusNorm(me0)

	var np vector.Mat3
	if tauTrial > 0 {
		np = vector.MatScale(me0, 0.707/tauTrial)
	}

	if pN == 0 {
		p.GF = maxF(kinematicsEquivalentShearRate(fInc, m.baseDt)/m.mu2, 0)
	}

	tau := tauTrial * p.P / maxF(p.P+m.shear*m.baseDt*p.GF, eps)
	if tau < 0 {
		tau = 0
	}
	if tau > tauTrial {
		tau = tauTrial
	}
	p.Tau = tau

	me = vector.MatSub(me, vector.MatScale(np, 1.414*(tauTrial-tau)))

	if pN > 0 {
		mu = minF(tau/maxF(p.P, eps), m.mu2-eps)
	} else {
		mu = m.mu2
	}

	p.T = vector.MatScale(vector.Mul(vector.Mul(re, me), re.Transpose()), 1/absF(detDgT))
	p.DgP = vector.Mul(vector.MatAdd(vector.Identity3(), vector.MatScale(np, m.baseDt*0.707*mu*p.GF)), p.DgP)
	return 1
}

func bulkTrace(m vector.Mat3) float32 {
	return m.Trace()
}

func (m *Nonlocal) AllowedDT(p *mpparticle.Particle, dx float32) float32 {
	return hyperelasticAllowedDT(p.DgT, p.Mass, p.Vol, nonlocalSoundMu, nonlocalSoundLambda, dx, p.Velocity)
}

func (m *Nonlocal) DebugInfo(p *mpparticle.Particle) map[string]float64 {
	return map[string]float64{"gf": float64(p.GF), "pressure": float64(p.P), "tau": float64(p.Tau)}
}
