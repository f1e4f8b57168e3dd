package vector

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Mat3 is a row-major 3x3 matrix: rows 0,1,2 occupy indices 0-2, 3-5, 6-8.
// Deformation gradients, the APIC affine matrices, and stress tensors are
// all carried as Mat3 values on the particle.
type Mat3 [9]float32

func Identity3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

func (m Mat3) At(row, col int) float32 {
	return m[row*3+col]
}

func (m *Mat3) Set(row, col int, v float32) {
	m[row*3+col] = v
}

func (m Mat3) Row(r int) Vec3 {
	return Vec3{m[r*3], m[r*3+1], m[r*3+2]}
}

func (m Mat3) Col(c int) Vec3 {
	return Vec3{m[c], m[c+3], m[c+6]}
}

func MatAdd(a, b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 9; i++ {
		r[i] = a[i] + b[i]
	}
	return r
}

func MatSub(a, b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 9; i++ {
		r[i] = a[i] - b[i]
	}
	return r
}

func MatScale(a Mat3, s float32) Mat3 {
	var r Mat3
	for i := 0; i < 9; i++ {
		r[i] = a[i] * s
	}
	return r
}

// Mul returns a * b (matrix product).
func Mul(a, b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += a.At(i, k) * b.At(k, j)
			}
			r.Set(i, j, sum)
		}
	}
	return r
}

// MulVec returns a * v.
func MulVec(a Mat3, v Vec3) Vec3 {
	return Vec3{
		a[0]*v[0] + a[1]*v[1] + a[2]*v[2],
		a[3]*v[0] + a[4]*v[1] + a[5]*v[2],
		a[6]*v[0] + a[7]*v[1] + a[8]*v[2],
	}
}

func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

func (m Mat3) Trace() float32 {
	return m[0] + m[4] + m[8]
}

func (m Mat3) Det() float32 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Inverse returns the matrix inverse; if the determinant's magnitude
// collapses below 1e-20 it is clamped to ±1e-20 in the denominator
// (spec §7: "numerical anomalies are clamped locally").
func (m Mat3) Inverse() Mat3 {
	det := m.Det()
	if math.Abs(float64(det)) < 1e-20 {
		if det < 0 {
			det = -1e-20
		} else {
			det = 1e-20
		}
	}
	invDet := 1 / det
	var r Mat3
	r[0] = (m[4]*m[8] - m[5]*m[7]) * invDet
	r[1] = (m[2]*m[7] - m[1]*m[8]) * invDet
	r[2] = (m[1]*m[5] - m[2]*m[4]) * invDet
	r[3] = (m[5]*m[6] - m[3]*m[8]) * invDet
	r[4] = (m[0]*m[8] - m[2]*m[6]) * invDet
	r[5] = (m[2]*m[3] - m[0]*m[5]) * invDet
	r[6] = (m[3]*m[7] - m[4]*m[6]) * invDet
	r[7] = (m[1]*m[6] - m[0]*m[7]) * invDet
	r[8] = (m[0]*m[4] - m[1]*m[3]) * invDet
	return r
}

// InverseTranspose returns (m^-1)^T, the form first_piola_kirchhoff needs.
func (m Mat3) InverseTranspose() Mat3 {
	return m.Inverse().Transpose()
}

func (m Mat3) toDense() *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d.Set(i, j, float64(m.At(i, j)))
		}
	}
	return d
}

func fromDense(d mat.Matrix) Mat3 {
	var m Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, float32(d.At(i, j)))
		}
	}
	return m
}

// SVD factors m = U * Σ * V^T, returning U, the singular values (as a
// Vec3; DiagFromVec3 builds the diagonal "Σ" used throughout the
// StVK-Hencky and corotated material formulas), and V. Backed by gonum/mat, grounded on
// the corpus's use of gonum for dense linear algebra (see DESIGN.md).
func (m Mat3) SVD() (u Mat3, sigma Vec3, v Mat3) {
	var svd mat.SVD
	ok := svd.Factorize(m.toDense(), mat.SVDFull)
	if !ok {
		return Identity3(), Vec3{1, 1, 1}, Identity3()
	}
	var um, vm mat.Dense
	svd.UTo(&um)
	svd.VTo(&vm)
	vals := svd.Values(nil)
	u = fromDense(&um)
	v = fromDense(&vm)
	sigma = Vec3{float32(vals[0]), float32(vals[1]), float32(vals[2])}
	return u, sigma, v
}

// PolarDecompose returns R, S such that m = R*S, R orthonormal (rotation)
// and S symmetric positive semi-definite. Used by the corotated (Jelly,
// Snow) force models.
func (m Mat3) PolarDecompose() (r, s Mat3) {
	u, sigma, v := m.SVD()
	sigmaMat := Mat3{
		sigma[0], 0, 0,
		0, sigma[1], 0,
		0, 0, sigma[2],
	}
	r = Mul(u, v.Transpose())
	s = Mul(v, Mul(sigmaMat, v.Transpose()))
	return r, s
}

// DiagFromVec3 builds a diagonal matrix from a vector, the "Σ" operand
// used repeatedly by the Elastic and Snow materials.
func DiagFromVec3(v Vec3) Mat3 {
	return Mat3{
		v[0], 0, 0,
		0, v[1], 0,
		0, 0, v[2],
	}
}

// LogVec3 returns the componentwise natural log, clamping inputs away from
// zero (spec §7 clamp policy) since Σ can legitimately approach 0 under
// extreme compression.
func LogVec3(v Vec3) Vec3 {
	clamp := func(x float32) float32 {
		if x < 1e-6 {
			return 1e-6
		}
		return x
	}
	return Vec3{
		float32(math.Log(float64(clamp(v[0])))),
		float32(math.Log(float64(clamp(v[1])))),
		float32(math.Log(float64(clamp(v[2])))),
	}
}

func ExpVec3(v Vec3) Vec3 {
	return Vec3{
		float32(math.Exp(float64(v[0]))),
		float32(math.Exp(float64(v[1]))),
		float32(math.Exp(float64(v[2]))),
	}
}

// InverseVec3 returns the componentwise reciprocal, clamping away from
// zero as with LogVec3.
func InverseVec3(v Vec3) Vec3 {
	clamp := func(x float32) float32 {
		if math.Abs(float64(x)) < 1e-6 {
			if x < 0 {
				return -1e-6
			}
			return 1e-6
		}
		return x
	}
	return Vec3{1 / clamp(v[0]), 1 / clamp(v[1]), 1 / clamp(v[2])}
}
