// Package kernel computes the quadratic MLS B-spline stencil weights used
// by both P2G rasterization and G2P resampling (spec §4.C).
package kernel

import (
	"math"

	"github.com/andewx/mlsmpm/grid"
	"github.com/andewx/mlsmpm/vector"
)

// AxisWeights holds the three per-axis quadratic B-spline weights for one
// coordinate axis, grounded on the teacher's axis-separable kernel shape
// in fluid/kernel.go (Kernel.Weight computing a radial falloff once per
// axis combination); here the basis is the MLS quadratic spline rather
// than the teacher's cubic/gaussian SPH kernels, per spec §4.C.
type AxisWeights [3]float32

// Stencil is the full 3x3x3 MLS weight neighborhood for one particle,
// axis-separable: the weight at offset (i,j,k) is X[i]*Y[j]*Z[k] (spec
// §4.C point 4). BaseCell is the grid-index of stencil offset (0,0,0).
type Stencil struct {
	BaseCell grid.IVec3
	X, Y, Z  AxisWeights
	Frac     vector.Vec3 // fractional offset f, used to derive dpos per cell
}

// axisWeights computes w0, w1, w2 for one axis given fractional offset f
// in [0,1) (spec §4.C point 3).
func axisWeights(f float32) AxisWeights {
	fm := float32(0.5) - f
	fp := float32(0.5) + f
	return AxisWeights{
		0.5 * fm * fm,
		0.75 - f*f,
		0.5 * fp * fp,
	}
}

// Compute builds the stencil for particle position pos (grid units, i.e.
// already divided by cell size) per spec §4.C steps 1-3.
func Compute(pos vector.Vec3) Stencil {
	var base grid.IVec3
	var f vector.Vec3
	for axis := 0; axis < 3; axis++ {
		b := math.Floor(float64(pos[axis]) - 0.5)
		base[axis] = int32(b)
		f[axis] = pos[axis] - float32(b) - 0.5
	}
	return Stencil{
		BaseCell: base,
		X:        axisWeights(f[0]),
		Y:        axisWeights(f[1]),
		Z:        axisWeights(f[2]),
		Frac:     f,
	}
}

// Weight returns the scalar stencil weight w_i(x)*w_j(y)*w_k(z) at local
// offset (i,j,k) in [0,3)^3.
func (s Stencil) Weight(i, j, k int) float32 {
	return s.X[i] * s.Y[j] * s.Z[k]
}

// CellCoord returns the world grid coordinate of stencil cell (i,j,k).
func (s Stencil) CellCoord(i, j, k int) grid.IVec3 {
	return grid.IVec3{s.BaseCell[0] + int32(i), s.BaseCell[1] + int32(j), s.BaseCell[2] + int32(k)}
}

// Dpos returns pos - cell_center for stencil cell (i,j,k), in grid units,
// i.e. (1 + f - i) in each axis: the weights above centre node 1 on
// pos - f, so the node of stencil cell i sits at BaseCell+i-0.5 while
// pos = BaseCell + 0.5 + f. With this offset the stencil's first moment
// Σw·dpos is 0 and its second moment Σw·dpos² is 1/4 per axis.
func (s Stencil) Dpos(i, j, k int) vector.Vec3 {
	return vector.Vec3{
		s.Frac[0] + 1 - float32(i),
		s.Frac[1] + 1 - float32(j),
		s.Frac[2] + 1 - float32(k),
	}
}

// Gradient returns the non-MLS gradient basis dw/dx for cell (i,j,k),
// used by the cdg accumulation and the non-MLS stress term (spec §4.E
// point 5, §4.F point 2 "cdg += outer(grid_v, ∇w)"). The quadratic
// B-spline derivative per axis is dw0 = f-0.5, dw1 = -2f, dw2 = f+0.5
// (axis-local, un-scaled by inv_dx; callers multiply by inv_dx as needed).
func (s Stencil) Gradient(i, j, k int) vector.Vec3 {
	dX := axisDerivative(s.Frac[0], i)
	dY := axisDerivative(s.Frac[1], j)
	dZ := axisDerivative(s.Frac[2], k)
	return vector.Vec3{
		dX * s.Y[j] * s.Z[k],
		s.X[i] * dY * s.Z[k],
		s.X[i] * s.Y[j] * dZ,
	}
}

func axisDerivative(f float32, idx int) float32 {
	switch idx {
	case 0:
		return f - 0.5
	case 1:
		return -2 * f
	default:
		return f + 0.5
	}
}

// Each iterates f(i,j,k,weight) over all 27 stencil cells as three nested
// loops over the axis-separable stencil, multiplying the per-axis weights
// once per cell (not a hand-unrolled sequence).
func (s Stencil) Each(f func(i, j, k int, w float32)) {
	for k := 0; k < 3; k++ {
		wz := s.Z[k]
		for j := 0; j < 3; j++ {
			wyz := s.Y[j] * wz
			for i := 0; i < 3; i++ {
				f(i, j, k, s.X[i]*wyz)
			}
		}
	}
}

// WeightSum returns Σw_i(x) over the full stencil; used by property tests
// to verify the partition-of-unity invariant (spec §8: "Σ w_i(x) = 1 for
// every x").
func (s Stencil) WeightSum() float32 {
	var sum float32
	s.Each(func(i, j, k int, w float32) { sum += w })
	return sum
}
