// Package vector provides the small value types (Vec3, Vec4, Mat3) used
// throughout the particle-grid transfer engine and the constitutive
// material models.
package vector

import (
	"fmt"
	"math"
)

// Vec3 is a 3-component single precision vector. Immutable free functions
// operate on values; pointer methods with the same name mutate in place.
type Vec3 [3]float32

// Vec4 holds the grid cell's momentum+mass lanes: the first three lanes are
// the momentum (or, after normalization, velocity) vector and the last
// lane is the cell mass.
type Vec4 [4]float32

// Vec2 is a 2-component vector; no other package in this module uses it.
type Vec2 [2]float32

func NewVec3(a float32) *Vec3 {
	return &Vec3{a, a, a}
}

func ZeroVec3() Vec3 {
	return Vec3{}
}

func Abs(a Vec3) Vec3 {
	a[0] = float32(math.Abs(float64(a[0])))
	a[1] = float32(math.Abs(float64(a[1])))
	a[2] = float32(math.Abs(float64(a[2])))
	return a
}

func Dot(a, b Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (v *Vec3) Dot(b Vec3) float32 {
	return v[0]*b[0] + v[1]*b[1] + v[2]*b[2]
}

func Scale(v Vec3, a float32) Vec3 {
	return Vec3{v[0] * a, v[1] * a, v[2] * a}
}

func (v *Vec3) Scale(a float32) *Vec3 {
	v[0] *= a
	v[1] *= a
	v[2] *= a
	return v
}

func (v *Vec3) Clear() *Vec3 {
	v[0], v[1], v[2] = 0, 0, 0
	return v
}

func Add(v, b Vec3) Vec3 {
	return Vec3{v[0] + b[0], v[1] + b[1], v[2] + b[2]}
}

func Sub(v, b Vec3) Vec3 {
	return Vec3{v[0] - b[0], v[1] - b[1], v[2] - b[2]}
}

func (v *Vec3) Add(b Vec3) *Vec3 {
	v[0] += b[0]
	v[1] += b[1]
	v[2] += b[2]
	return v
}

func (v *Vec3) Sub(b Vec3) *Vec3 {
	v[0] -= b[0]
	v[1] -= b[1]
	v[2] -= b[2]
	return v
}

func Cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Outer returns the outer product a ⊗ b as a row-major Mat3.
func Outer(a, b Vec3) Mat3 {
	return Mat3{
		a[0] * b[0], a[0] * b[1], a[0] * b[2],
		a[1] * b[0], a[1] * b[1], a[1] * b[2],
		a[2] * b[0], a[2] * b[1], a[2] * b[2],
	}
}

func Length(a Vec3) float32 {
	return float32(math.Sqrt(float64(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])))
}

func (v *Vec3) Length() float32 {
	return Length(*v)
}

func Normalize(a Vec3) Vec3 {
	l := Length(a)
	if l == 0 {
		return Vec3{}
	}
	return Scale(a, 1/l)
}

func (v *Vec3) Normalize() *Vec3 {
	n := Normalize(*v)
	*v = n
	return v
}

// Proj returns the projection of a onto n.
func Proj(a, n Vec3) Vec3 {
	ln := Length(n)
	if ln == 0 {
		return Vec3{}
	}
	return Scale(n, Dot(a, n)/(ln*ln))
}

func (v *Vec3) Distance(a Vec3) float32 {
	return Length(Sub(*v, a))
}

func VecEquals(a, b Vec3) bool {
	return a[0] == b[0] && a[1] == b[1] && a[2] == b[2]
}

func ApproxEqual(a, b Vec3, eps float32) bool {
	return float32(math.Abs(float64(a[0]-b[0]))) <= eps &&
		float32(math.Abs(float64(a[1]-b[1]))) <= eps &&
		float32(math.Abs(float64(a[2]-b[2]))) <= eps
}

func (a Vec3) String() string {
	return fmt.Sprintf("[%f, %f, %f]", a[0], a[1], a[2])
}

func (a Vec4) String() string {
	return fmt.Sprintf("[%f, %f, %f, %f]", a[0], a[1], a[2], a[3])
}

// Momentum returns the first dim lanes of a Vec4 as a Vec3.
func (a Vec4) Momentum() Vec3 {
	return Vec3{a[0], a[1], a[2]}
}

// Mass returns the last lane of a Vec4.
func (a Vec4) Mass() float32 {
	return a[3]
}

// Add returns the lane-wise sum of two Vec4s (used to accumulate P2G
// momentum+mass contributions across overlapping block halos).
func (a Vec4) Add(b Vec4) Vec4 {
	return Vec4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// Scale returns a scaled by s.
func (a Vec4) Scale(s float32) Vec4 {
	return Vec4{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

// IsZero reports whether every lane is exactly zero.
func (a Vec4) IsZero() bool {
	return a[0] == 0 && a[1] == 0 && a[2] == 0 && a[3] == 0
}
