// Package engine orchestrates one MLS-MPM substep's three phases -
// Rasterize, grid normalization, Resample (spec §5) - over a
// grid.SparseGrid, mpparticle.Collection, material.Table, and
// rigid.Registry, and owns the CFL-driven substep count + opt-in perf
// logging the transfer package itself has no business knowing about.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andewx/mlsmpm/grid"
	"github.com/andewx/mlsmpm/material"
	"github.com/andewx/mlsmpm/mpmerr"
	"github.com/andewx/mlsmpm/mpparticle"
	"github.com/andewx/mlsmpm/rigid"
	"github.com/andewx/mlsmpm/transfer"
)

// Engine binds the grid, particle collection, material table, and rigid
// registry a full simulation needs, plus the transfer parameters shared
// by every phase.
type Engine struct {
	Grid       *grid.SparseGrid
	Scheduler  *grid.BlockScheduler
	Particles  *mpparticle.Collection
	Materials  material.Table
	Rigids     *rigid.Registry
	Params     transfer.Params

	perf *PerfStats
}

// New builds an Engine with a scheduler sized to GOMAXPROCS.
func New(g *grid.SparseGrid, particles *mpparticle.Collection, materials material.Table, rigids *rigid.Registry, params transfer.Params) *Engine {
	return &Engine{
		Grid:      g,
		Scheduler: grid.NewBlockScheduler(g),
		Particles: particles,
		Materials: materials,
		Rigids:    rigids,
		Params:    params,
	}
}

// EnablePerf attaches a PerfStats tracker; Step records each phase's
// duration into it until DisablePerf is called.
func (e *Engine) EnablePerf() *PerfStats {
	e.perf = NewPerfStats()
	return e.perf
}

func (e *Engine) DisablePerf() {
	e.perf = nil
}

// StepResult is returned by Step (SPEC_FULL supplement #1): how many CFL
// substeps actually ran, the minimum material get_allowed_dt observed
// across every particle at the end of the step (0 means unconstrained -
// a driver may pick any next Δt), and any error the step aborted on.
type StepResult struct {
	Substeps     int
	MinAllowedDT float32
	Err          error
}

// Step advances the simulation by dt, subdividing internally into
// CFL-safe substeps bounded by the minimum get_allowed_dt observed at
// the start of the call (spec §4.G: "used by an external scenario
// driver to pick the next Δt" - here the engine additionally uses it to
// avoid overshooting stability within a single Step call, an Open
// Question this repo resolves in favor of a self-limiting engine rather
// than leaving substep subdivision entirely to the driver).
//
// ResourceExhausted and InternalInvariant come back from the grid,
// transfer, and particle calls as returned *mpmerr.Error values and are
// passed through as StepResult.Err. Step also recovers a panic raised on
// its own goroutine and reports it the same way; a panic inside a block
// scheduler worker goroutine is not recovered here.
func (e *Engine) Step(ctx context.Context, dt float32) (result StepResult) {
	defer func() {
		if r := recover(); r != nil {
			if merr, ok := r.(*mpmerr.Error); ok {
				result.Err = merr
				return
			}
			result.Err = mpmerr.New(mpmerr.InternalInvariant, fmt.Sprintf("panic in engine.Step: %v", r))
		}
	}()

	substeps := 1
	minDT := e.minAllowedDT()
	if minDT > 0 && minDT < dt {
		substeps = int(math.Ceil(float64(dt / minDT)))
	}
	subDT := dt / float32(substeps)

	for i := 0; i < substeps; i++ {
		if err := ctx.Err(); err != nil {
			result.Err = mpmerr.Wrap(mpmerr.DomainError, "step cancelled at substep boundary", err)
			return result
		}
		if err := e.substep(subDT); err != nil {
			result.Err = err
			return result
		}
		result.Substeps++
	}

	result.MinAllowedDT = e.minAllowedDT()
	return result
}

func (e *Engine) substep(dt float32) error {
	e.Params.Dt = dt

	t0 := time.Now()
	if err := transfer.Rasterize(e.Grid, e.Scheduler, e.Particles.All(), e.Materials, e.Rigids, e.Params); err != nil {
		return err
	}
	e.record("rasterize", t0)

	t1 := time.Now()
	if err := transfer.Normalize(e.Grid, e.Scheduler, e.Params); err != nil {
		return err
	}
	e.record("normalize", t1)

	t2 := time.Now()
	if err := transfer.Resample(e.Grid, e.Scheduler, e.Particles.All(), e.Materials, e.Rigids, e.Params); err != nil {
		return err
	}
	e.record("resample", t2)

	t3 := time.Now()
	e.Particles.Resort()
	if err := e.Particles.CheckInvariant(); err != nil {
		return err
	}
	e.record("resort", t3)
	return nil
}

func (e *Engine) record(phase string, since time.Time) {
	if e.perf == nil {
		return
	}
	e.perf.record(phase, time.Since(since))
}

// minAllowedDT scans every particle's material for get_allowed_dt,
// taking the smallest positive value (0 from a material means
// unconstrained and is skipped per spec §4.G).
func (e *Engine) minAllowedDT() float32 {
	var min float32
	for _, p := range e.Particles.All() {
		mat := e.Materials.For(p)
		dt := mat.AllowedDT(p, e.Params.Dx)
		if dt <= 0 {
			continue
		}
		if min == 0 || dt < min {
			min = dt
		}
	}
	return min
}
