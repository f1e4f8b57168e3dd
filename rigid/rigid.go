// Package rigid defines the RigidBody external-collaborator contract
// (spec §6) and a concrete thread-safe implementation the transfer
// package's P2G impulse branch and G2P fake-velocity substitution call
// into. Rigid-body collision/integration proper is out of scope (spec
// §1 Non-goals); this package only carries the state the transfer
// kernels read and the impulse accumulator they write.
package rigid

import (
	"sync"

	"github.com/andewx/mlsmpm/vector"
)

// Body is the collaborator interface the transfer package depends on.
// Implementations must make ApplyTmpImpulse safe to call concurrently
// from multiple block workers (spec §5: "apply_tmp_impulse, which is
// expected to be thread-safe... and flushed at end of phase via
// apply_tmp_velocity()").
type Body interface {
	VelocityAt(point vector.Vec3) vector.Vec3
	ApplyTmpImpulse(impulse, point vector.Vec3)
	ResetTmpVelocity()
	ApplyTmpVelocity()
	Frictions() [2]float32
	ID() int
}

// RigidBody is a linear+angular rigid body, grounded on the teacher's
// Triangle/Mesh collision shapes in geometry/geometry.go generalized from
// a one-shot collision probe to a persistent body carrying velocity and
// an impulse accumulator across a full simulation step.
type RigidBody struct {
	id int

	mu sync.Mutex

	Position        vector.Vec3
	LinearVelocity  vector.Vec3
	AngularVelocity vector.Vec3
	Mass            float32
	InertiaInv      vector.Mat3
	FrictionCoeffs  [2]float32

	tmpImpulse        vector.Vec3
	tmpAngularImpulse vector.Vec3
	tmpVelocity       vector.Vec3
}

// NewRigidBody constructs a body with the given stable id (spec §6: "id
// — stable integer in [0, 12)").
func NewRigidBody(id int, mass float32, inertiaInv vector.Mat3, frictions [2]float32) *RigidBody {
	return &RigidBody{
		id:             id,
		Mass:           mass,
		InertiaInv:     inertiaInv,
		FrictionCoeffs: frictions,
	}
}

// VelocityAt returns the body's velocity at a world point: v = v_com +
// ω × (point − com).
func (b *RigidBody) VelocityAt(point vector.Vec3) vector.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := vector.Sub(point, b.Position)
	return vector.Add(b.LinearVelocity, vector.Cross(b.AngularVelocity, r))
}

// ApplyTmpImpulse accumulates a linear impulse applied at point into the
// body's per-step scratch. Safe for concurrent callers across block
// workers; contention is expected to be rare (only particles near a cut
// surface reach this path).
func (b *RigidBody) ApplyTmpImpulse(impulse, point vector.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tmpImpulse = vector.Add(b.tmpImpulse, impulse)
	r := vector.Sub(point, b.Position)
	b.tmpAngularImpulse = vector.Add(b.tmpAngularImpulse, vector.Cross(r, impulse))
}

// ResetTmpVelocity clears the per-step impulse scratch. Called at the
// start of the Rasterize phase.
func (b *RigidBody) ResetTmpVelocity() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tmpImpulse = vector.Vec3{}
	b.tmpAngularImpulse = vector.Vec3{}
	b.tmpVelocity = vector.Vec3{}
}

// ApplyTmpVelocity flushes the accumulated impulse into the body's
// linear and angular velocity. Called once at the end of the Rasterize
// phase, after every block worker has finished contributing.
func (b *RigidBody) ApplyTmpVelocity() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Mass <= 0 {
		return
	}
	b.tmpVelocity = vector.Scale(b.tmpImpulse, 1/b.Mass)
	angDelta := vector.MulVec(b.InertiaInv, b.tmpAngularImpulse)
	b.LinearVelocity = vector.Add(b.LinearVelocity, b.tmpVelocity)
	b.AngularVelocity = vector.Add(b.AngularVelocity, angDelta)
}

// Frictions returns the body's outside/inside friction coefficients
// (spec §6: "two coefficients per body (outside/inside sign of
// friction)").
func (b *RigidBody) Frictions() [2]float32 {
	return b.FrictionCoeffs
}

func (b *RigidBody) ID() int {
	return b.id
}

// TmpVelocity exposes the most recently flushed impulse-derived velocity
// delta for logging/debugging; the transfer kernels do not read it.
func (b *RigidBody) TmpVelocity() vector.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tmpVelocity
}
