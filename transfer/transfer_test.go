package transfer

import (
	"math"
	"testing"

	"github.com/andewx/mlsmpm/coloring"
	"github.com/andewx/mlsmpm/grid"
	"github.com/andewx/mlsmpm/material"
	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/rigid"
	"github.com/andewx/mlsmpm/vector"
)

func defaultParams(dt float32) Params {
	return Params{
		Dx: 1, InvDx: 1, Dt: dt,
		Gravity:         vector.Vec3{0, -9.8, 0},
		ParticleGravity: false,
		PenaltyStrength: 1,
		APICDamping:     1,
		DomainMax:       vector.Vec3{1000, 1000, 1000},
	}
}

func runStep(t *testing.T, g *grid.SparseGrid, particles []*mpparticle.Particle, mats material.Table, rigids *rigid.Registry, p Params) {
	t.Helper()
	sched := grid.NewBlockScheduler(g)
	if err := Rasterize(g, sched, particles, mats, rigids, p); err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if err := Normalize(g, sched, p); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := Resample(g, sched, particles, mats, rigids, p); err != nil {
		t.Fatalf("resample: %v", err)
	}
}

// Spec §8 scenario 1: a single free particle with no forces keeps its
// velocity and advances linearly.
func TestSingleFreeParticleBallisticMotion(t *testing.T) {
	g := grid.NewSparseGrid()
	mats := material.NewDefaultTable()
	rigids := rigid.NewRegistry()
	p := defaultParams(0.01)
	p.Gravity = vector.Vec3{}

	part := mpparticle.New(vector.Vec3{4.5, 4.5, 4.5}, 1, 1, mpparticle.TagElastic)
	part.Velocity = vector.Vec3{1, 0, 0}

	runStep(t, g, []*mpparticle.Particle{part}, mats, rigids, p)

	wantPos := vector.Vec3{4.5 + p.Dt, 4.5, 4.5}
	for axis := 0; axis < 3; axis++ {
		if math.Abs(float64(part.Pos[axis]-wantPos[axis])) > 1e-4 {
			t.Errorf("axis %d: pos = %v, want %v", axis, part.Pos, wantPos)
		}
	}
	if math.Abs(float64(part.Velocity[0]-1)) > 1e-4 || math.Abs(float64(part.Velocity[1])) > 1e-4 || math.Abs(float64(part.Velocity[2])) > 1e-4 {
		t.Errorf("velocity = %v, want (1,0,0)", part.Velocity)
	}
}

// Spec §8 scenario 2: a cube of particles at rest under gravity ends the
// step with velocity == g*dt exactly, reproducing gravity through P2G/G2P
// with no residual affine noise.
func TestUniformCubeUnderGravity(t *testing.T) {
	g := grid.NewSparseGrid()
	mats := material.NewDefaultTable()
	rigids := rigid.NewRegistry()
	p := defaultParams(1e-4)
	p.ParticleGravity = true

	var particles []*mpparticle.Particle
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			for k := 0; k < 8; k++ {
				pos := vector.Vec3{float32(i) + 4.5, float32(j) + 4.5, float32(k) + 4.5}
				particles = append(particles, mpparticle.New(pos, 1, 1, mpparticle.TagJelly))
			}
		}
	}

	runStep(t, g, particles, mats, rigids, p)

	want := vector.Vec3{0, -9.8e-4, 0}
	for _, part := range particles {
		for axis := 0; axis < 3; axis++ {
			if math.Abs(float64(part.Velocity[axis]-want[axis])) > 1e-5 {
				t.Fatalf("particle at %v: velocity = %v, want %v", part.Pos, part.Velocity, want)
			}
		}
	}
}

// Spec §8 "Affine reproduction": a lone particle's affine velocity
// field v(x) = a + B*(x - x_p) recovers both v == a and apic_b == B
// exactly after one P2G/G2P round trip, since with a single contributor
// per grid node the quadratic kernel's first moment vanishes and its
// second moment is exactly 1/4 (in grid-cell units). This pins the
// inv_D*mass scaling Rasterize's affine term must carry. Gravity is
// zeroed so that Normalize adds nothing to the recovered velocity.
func TestAffineReproductionSingleParticle(t *testing.T) {
	g := grid.NewSparseGrid()
	mats := material.NewDefaultTable()
	rigids := rigid.NewRegistry()
	p := defaultParams(1e-3)
	p.Gravity = vector.Vec3{}

	part := mpparticle.New(vector.Vec3{5.3, 5.6, 5.2}, 1, 1, mpparticle.TagElastic)
	v := vector.Vec3{1, -1, 2}
	b := vector.Mat3{0.2, 0, 0, 0, -0.1, 0, 0, 0, -0.1}
	part.Velocity = v
	part.ApicB = b

	runStep(t, g, []*mpparticle.Particle{part}, mats, rigids, p)

	for axis := 0; axis < 3; axis++ {
		if math.Abs(float64(part.Velocity[axis]-v[axis])) > 1e-3 {
			t.Errorf("axis %d: recovered velocity = %v, want %v", axis, part.Velocity, v)
		}
	}
	for i := 0; i < 9; i++ {
		if math.Abs(float64(part.ApicB[i]-b[i])) > 1e-3 {
			t.Errorf("component %d: recovered apic_b = %v, want %v", i, part.ApicB, b)
		}
	}
}

// Pins the unsymmetrized cross term the APIC-C affine contribution scatters
// into P2G: dposc[i] = dpos[i]*dpos[(i+1)%3], not a symmetric outer product.
func TestApicCCrossTermsAreUnsymmetrized(t *testing.T) {
	dpos := vector.Vec3{2, 3, 5}
	got := apicCCrossTerms(dpos)
	want := vector.Vec3{2 * 3, 3 * 5, 5 * 2}
	if got != want {
		t.Fatalf("apicCCrossTerms(%v) = %v, want %v", dpos, got, want)
	}
}

// Mass and linear-momentum conservation in free space (spec §8
// universal properties): checked right after Rasterize, before
// Normalize divides momentum by mass.
func TestRasterizeConservesMassAndMomentum(t *testing.T) {
	g := grid.NewSparseGrid()
	mats := material.NewDefaultTable()
	rigids := rigid.NewRegistry()
	p := defaultParams(1e-3)

	particles := []*mpparticle.Particle{
		mpparticle.New(vector.Vec3{5.3, 5.1, 5.7}, 2, 1, mpparticle.TagElastic),
		mpparticle.New(vector.Vec3{5.8, 5.4, 5.2}, 3, 1, mpparticle.TagElastic),
		mpparticle.New(vector.Vec3{6.1, 4.9, 5.6}, 1.5, 1, mpparticle.TagElastic),
	}
	particles[0].Velocity = vector.Vec3{1, 2, -1}
	particles[1].Velocity = vector.Vec3{-2, 0, 1}
	particles[2].Velocity = vector.Vec3{0, -1, 2}

	sched := grid.NewBlockScheduler(g)
	if err := Rasterize(g, sched, particles, mats, rigids, p); err != nil {
		t.Fatalf("rasterize: %v", err)
	}

	var wantMass float32
	var wantMomentum vector.Vec3
	for _, part := range particles {
		wantMass += part.Mass
		wantMomentum = vector.Add(wantMomentum, vector.Scale(part.Velocity, part.Mass))
	}

	var gotMass float32
	var gotMomentum vector.Vec3
	for _, offset := range g.LiveBlocks() {
		block := g.Block(offset)
		for i := range block.Cells {
			cell := &block.Cells[i]
			gotMass += cell.VelocityAndMass[3]
			gotMomentum[0] += cell.VelocityAndMass[0]
			gotMomentum[1] += cell.VelocityAndMass[1]
			gotMomentum[2] += cell.VelocityAndMass[2]
		}
	}

	if math.Abs(float64(gotMass-wantMass)) > 1e-4 {
		t.Errorf("mass = %v, want %v", gotMass, wantMass)
	}
	for axis := 0; axis < 3; axis++ {
		if math.Abs(float64(gotMomentum[axis]-wantMomentum[axis])) > 1e-3 {
			t.Errorf("axis %d: momentum = %v, want %v", axis, gotMomentum, wantMomentum)
		}
	}
}

// Regression for the StoreBack double-count bug: particles split across
// two adjacent, differently-colored blocks share a halo cell at their
// boundary. If store-back ever re-adds the baseline Load already copied
// in, that shared cell's momentum/mass comes out inflated even though
// total mass/momentum across the whole grid must still match the sum of
// every particle's own contribution.
func TestRasterizeConservesMassAndMomentumAcrossAdjacentBlocks(t *testing.T) {
	g := grid.NewSparseGrid()
	mats := material.NewDefaultTable()
	rigids := rigid.NewRegistry()
	p := defaultParams(1e-3)

	particles := []*mpparticle.Particle{
		mpparticle.New(vector.Vec3{5.9, 5.1, 5.7}, 2, 1, mpparticle.TagElastic),
		mpparticle.New(vector.Vec3{8.1, 5.4, 5.2}, 3, 1, mpparticle.TagElastic),
	}
	particles[0].Velocity = vector.Vec3{1, 2, -1}
	particles[1].Velocity = vector.Vec3{-2, 0, 1}

	sched := grid.NewBlockScheduler(g)
	if err := Rasterize(g, sched, particles, mats, rigids, p); err != nil {
		t.Fatalf("rasterize: %v", err)
	}

	var wantMass float32
	var wantMomentum vector.Vec3
	for _, part := range particles {
		wantMass += part.Mass
		wantMomentum = vector.Add(wantMomentum, vector.Scale(part.Velocity, part.Mass))
	}

	var gotMass float32
	var gotMomentum vector.Vec3
	for _, offset := range g.LiveBlocks() {
		block := g.Block(offset)
		for i := range block.Cells {
			cell := &block.Cells[i]
			gotMass += cell.VelocityAndMass[3]
			gotMomentum[0] += cell.VelocityAndMass[0]
			gotMomentum[1] += cell.VelocityAndMass[1]
			gotMomentum[2] += cell.VelocityAndMass[2]
		}
	}

	if math.Abs(float64(gotMass-wantMass)) > 1e-4 {
		t.Errorf("mass = %v, want %v (double-counted shared halo cell?)", gotMass, wantMass)
	}
	for axis := 0; axis < 3; axis++ {
		if math.Abs(float64(gotMomentum[axis]-wantMomentum[axis])) > 1e-3 {
			t.Errorf("axis %d: momentum = %v, want %v", axis, gotMomentum, wantMomentum)
		}
	}
}

// Regression for the missing grid clear: running Rasterize twice in a row
// (as two CFL substeps would) without any intervening reset must not
// accumulate a second copy of the first pass's momentum onto the second.
func TestRasterizeClearsGridBetweenPasses(t *testing.T) {
	g := grid.NewSparseGrid()
	mats := material.NewDefaultTable()
	rigids := rigid.NewRegistry()
	p := defaultParams(1e-3)

	part := mpparticle.New(vector.Vec3{5.5, 5.5, 5.5}, 2, 1, mpparticle.TagElastic)
	part.Velocity = vector.Vec3{1, 0, 0}
	particles := []*mpparticle.Particle{part}

	sched := grid.NewBlockScheduler(g)
	if err := Rasterize(g, sched, particles, mats, rigids, p); err != nil {
		t.Fatalf("first rasterize: %v", err)
	}
	firstMass := sumMass(g)

	if err := Rasterize(g, sched, particles, mats, rigids, p); err != nil {
		t.Fatalf("second rasterize: %v", err)
	}
	secondMass := sumMass(g)

	if math.Abs(float64(secondMass-firstMass)) > 1e-4 {
		t.Errorf("mass after second rasterize = %v, want %v (grid not cleared between passes)", secondMass, firstMass)
	}
}

func sumMass(g *grid.SparseGrid) float32 {
	var total float32
	for _, offset := range g.LiveBlocks() {
		block := g.Block(offset)
		for i := range block.Cells {
			total += block.Cells[i].VelocityAndMass[3]
		}
	}
	return total
}

// Spec §8 scenario 5: a particle moving into a stationary rigid plate
// has its momentum diverted entirely into the plate's impulse scratch -
// the plate-adjacent cell never sees that particle's velocity, only the
// far-side particle's.
func TestCPICPlateBlocksMomentumTransfer(t *testing.T) {
	g := grid.NewSparseGrid()
	mats := material.NewDefaultTable()
	rigids := rigid.NewRegistry()
	p := defaultParams(1e-3)

	body := rigid.NewRigidBody(0, 10, vector.Identity3(), [2]float32{0, 0})
	if err := rigids.Register(body); err != nil {
		t.Fatalf("register rigid: %v", err)
	}

	// Pre-tag the boundary cell at x=3 as rigid-0's side-1 territory,
	// before any particle has been rasterized.
	if _, err := g.Allocate(grid.CoordToBlockOffset(grid.IVec3{3, 2, 2})); err != nil {
		t.Fatalf("allocate boundary block: %v", err)
	}
	cutState := coloring.SetRigidID(coloring.SetTag(0, 0, true, true), 0)
	cell := g.CellPtr(grid.IVec3{3, 2, 2})
	if cell == nil {
		t.Fatalf("boundary cell not committed")
	}
	cell.States = cutState

	partA := mpparticle.New(vector.Vec3{1.5, 2.5, 2.5}, 1, 1, mpparticle.TagElastic)
	partA.Velocity = vector.Vec3{1, 0, 0}
	partA.BoundaryNormal = vector.Vec3{-1, 0, 0}
	partA.States = coloring.SetTag(0, 0, true, false)

	partB := mpparticle.New(vector.Vec3{3.5, 2.5, 2.5}, 1, 1, mpparticle.TagElastic)
	partB.States = coloring.SetTag(0, 0, true, true)

	sched := grid.NewBlockScheduler(g)
	if err := Rasterize(g, sched, []*mpparticle.Particle{partA, partB}, mats, rigids, p); err != nil {
		t.Fatalf("rasterize: %v", err)
	}

	boundary := g.CellAt(grid.IVec3{3, 2, 2})
	if boundary.VelocityAndMass[0] != 0 {
		t.Errorf("boundary cell x-momentum = %v, want 0 (A's velocity must not leak through)", boundary.VelocityAndMass[0])
	}

	if body.LinearVelocity == (vector.Vec3{}) {
		t.Errorf("rigid body linear velocity unchanged, expected a non-zero impulse from the colliding particle")
	}
}
