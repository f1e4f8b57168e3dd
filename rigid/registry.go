package rigid

import "github.com/andewx/mlsmpm/mpmerr"

// MaxBodies mirrors grid.MaxRigidBodies; kept independent to avoid an
// import cycle (grid does not depend on rigid).
const MaxBodies = 12

// Registry resolves a states-encoded rigid id (spec §4.E: "r =
// rigid_of(g.rigid_id)") to a live Body, and owns the per-step
// reset/flush bookkeeping across every registered body.
type Registry struct {
	bodies [MaxBodies]Body
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds body at its own ID(). Fails with InvalidConfig if the id
// is out of [0, MaxBodies) or already taken.
func (r *Registry) Register(body Body) error {
	id := body.ID()
	if id < 0 || id >= MaxBodies {
		return mpmerr.New(mpmerr.InvalidConfig, "rigid body id out of [0,12) range")
	}
	if r.bodies[id] != nil {
		return mpmerr.New(mpmerr.InvalidConfig, "rigid body id already registered")
	}
	r.bodies[id] = body
	return nil
}

// RigidOf returns the body with the given id, or nil if none is
// registered there (spec §4.E: "If r is null, skip").
func (r *Registry) RigidOf(id int) Body {
	if id < 0 || id >= MaxBodies {
		return nil
	}
	return r.bodies[id]
}

// ResetAll calls ResetTmpVelocity on every registered body; invoked at
// the start of the Rasterize phase.
func (r *Registry) ResetAll() {
	for _, b := range r.bodies {
		if b != nil {
			b.ResetTmpVelocity()
		}
	}
}

// FlushAll calls ApplyTmpVelocity on every registered body; invoked once
// all block workers have finished the Rasterize phase.
func (r *Registry) FlushAll() {
	for _, b := range r.bodies {
		if b != nil {
			b.ApplyTmpVelocity()
		}
	}
}
