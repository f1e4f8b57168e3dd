package kernel

import (
	"math"
	"testing"

	"github.com/andewx/mlsmpm/grid"
	"github.com/andewx/mlsmpm/vector"
)

func approx(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func TestPartitionOfUnity(t *testing.T) {
	positions := []vector.Vec3{
		{1.0, 1.0, 1.0},
		{1.5, 2.25, 3.75},
		{10.01, 10.99, 10.5},
		{-3.4, 7.2, 0.1},
	}
	for _, p := range positions {
		s := Compute(p)
		sum := s.WeightSum()
		if !approx(sum, 1.0, 1e-5) {
			t.Errorf("WeightSum(%v) = %f, want 1.0", p, sum)
		}
	}
}

func TestBaseCellAndFracRange(t *testing.T) {
	p := vector.Vec3{4.3, -2.7, 0.05}
	s := Compute(p)
	if want := (grid.IVec3{3, -4, -1}); s.BaseCell != want {
		t.Errorf("BaseCell = %v, want %v", s.BaseCell, want)
	}
	for axis := 0; axis < 3; axis++ {
		if s.Frac[axis] < 0 || s.Frac[axis] >= 1 {
			t.Errorf("axis %d frac = %f, want in [0,1)", axis, s.Frac[axis])
		}
	}
}

func TestWeightsNonNegative(t *testing.T) {
	s := Compute(vector.Vec3{2.2, 2.2, 2.2})
	s.Each(func(i, j, k int, w float32) {
		if w < 0 {
			t.Errorf("weight(%d,%d,%d) = %f, want >= 0", i, j, k, w)
		}
	})
}

func TestDposConsistentWithCellCoord(t *testing.T) {
	p := vector.Vec3{5.6, 5.6, 5.6}
	s := Compute(p)
	for k := 0; k < 3; k++ {
		for j := 0; j < 3; j++ {
			for i := 0; i < 3; i++ {
				// The node of cell c sits at c-0.5 in grid units: the
				// weights put node 1 (BaseCell+1) at pos-f.
				cell := s.CellCoord(i, j, k)
				center := vector.Vec3{float32(cell[0]) - 0.5, float32(cell[1]) - 0.5, float32(cell[2]) - 0.5}
				want := vector.Vec3{p[0] - center[0], p[1] - center[1], p[2] - center[2]}
				got := s.Dpos(i, j, k)
				for axis := 0; axis < 3; axis++ {
					if !approx(got[axis], want[axis], 1e-4) {
						t.Errorf("Dpos(%d,%d,%d)[%d] = %f, want %f", i, j, k, axis, got[axis], want[axis])
					}
				}
			}
		}
	}
}

func TestGradientSumIsZero(t *testing.T) {
	// The quadratic B-spline gradient basis sums to zero over the
	// stencil for any axis since the weights themselves sum to a
	// constant (1) everywhere.
	s := Compute(vector.Vec3{3.3, 6.6, 9.9})
	var sum vector.Vec3
	s.Each(func(i, j, k int, w float32) {
		g := s.Gradient(i, j, k)
		sum[0] += g[0]
		sum[1] += g[1]
		sum[2] += g[2]
	})
	for axis := 0; axis < 3; axis++ {
		if !approx(sum[axis], 0, 1e-4) {
			t.Errorf("gradient sum axis %d = %f, want 0", axis, sum[axis])
		}
	}
}
