package material

import (
	"math"

	"github.com/andewx/mlsmpm/vector"
)

// stvkHenckyP returns the StVK-Hencky first Piola-Kirchhoff stress
// U*(2*mu*Sigma^-1*logSigma + lambda*(Sigma logSigma).sum*Sigma^-1)*V^T
// (spec §4.G Elastic formula, shared by Sand and VonMises which use the
// same law with different (mu, lambda) sources).
func stvkHenckyP(dgE vector.Mat3, mu, lambda float32) vector.Mat3 {
	u, sigma, v := dgE.SVD()
	logSigma := vector.LogVec3(sigma)
	invSigma := vector.InverseVec3(sigma)
	sumLog := logSigma[0] + logSigma[1] + logSigma[2]

	var centerDiag vector.Vec3
	for i := 0; i < 3; i++ {
		centerDiag[i] = 2*mu*invSigma[i]*logSigma[i] + lambda*sumLog*invSigma[i]
	}
	center := vector.DiagFromVec3(centerDiag)
	return vector.Mul(vector.Mul(u, center), v.Transpose())
}

// corotatedP returns the fixed-corotated first Piola-Kirchhoff stress
// 2*mu*(F-R) + lambda*(J-1)*J*F^-T (spec §4.G Jelly/Snow formula).
func corotatedP(f vector.Mat3, mu, lambda float32) vector.Mat3 {
	r, _ := f.PolarDecompose()
	j := f.Det()
	term1 := vector.MatScale(vector.MatSub(f, r), 2*mu)
	term2 := vector.MatScale(f.InverseTranspose(), lambda*(j-1)*j)
	return vector.MatAdd(term1, term2)
}

// hyperelasticAllowedDT implements the dx/(c+|v|) sound-speed CFL bound
// shared by Elastic, Snow, Sand, VonMises, Visco, and Nonlocal (spec
// §4.G get_allowed_dt; original_source particles.cpp repeats this block
// verbatim across its material classes).
func hyperelasticAllowedDT(dgE vector.Mat3, mass, vol0, mu, lambda, dx float32, velocity vector.Vec3) float32 {
	j := dgE.Det()
	if math.Abs(float64(j)) < 1e-20 {
		if j < 0 {
			j = -1e-20
		} else {
			j = 1e-20
		}
	}
	rho0 := mass / vol0
	rho := rho0 / j

	k := 2*mu/3 + lambda
	logJ := math.Log(math.Abs(float64(j)))
	c2 := 4*mu/(3*rho) + k*(1-float32(logJ))/rho0
	if c2 < 1e-20 {
		c2 = 1e-20
	}
	c := float32(math.Sqrt(float64(c2)))

	u := vector.Length(velocity)
	return dx / (c + u)
}

func clampF(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func absF(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}
