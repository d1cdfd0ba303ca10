// Package fishswarm runs rule-based schooling and flocking simulations.
//
// A fixed number of point particles move in a 2D or 3D box.
// Each step, every particle looks at its neighbors in the previous frame
// and steers according to simple individual laws (separation, alignment,
// cohesion and boundary avoidance). Velocities are then integrated with
// semi-implicit Euler and the new frame is appended to the trajectory.
//
// The package is only concerned with the engine: rendering and storage
// live in the opengl, hdf5 and store packages.
package fishswarm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// A Phase is a stage in the lifecycle of a Simulation.
type Phase int

const (
	Uninitialized Phase = iota // zero Simulation, not created with New
	Initialized                // initial frame recorded, no step run yet
	Running                    // at least one step run, more to go
	Completed                  // all steps run, the trajectory is final
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// A Simulation contains all the state and parameters of a simulation.
type Simulation struct {
	params Parameters
	env    *Environment
	eval   *Evaluator
	jitter []Jitter // per-particle weight multipliers, nil without jitter
	traj   *Trajectory
	cur    Frame
	step   int
	ready  bool
	log    *slog.Logger
	onStep func(Frame)
}

type options struct {
	initial []Particle
	log     *slog.Logger
	onStep  func(Frame)
}

// An Option customizes New.
type Option func(*options)

// WithInitialState uses ps as the initial frame instead of generating one
// from the seed. IDs are reassigned to the slice indices.
func WithInitialState(ps []Particle) Option {
	return func(o *options) { o.initial = ps }
}

// WithLogger sets the logger used to report progress.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStepHook registers fn to be called with every new frame, after it
// was appended to the trajectory. fn runs on the stepping goroutine.
func WithStepHook(fn func(Frame)) Option {
	return func(o *options) { o.onStep = fn }
}

// New validates p, sets up the initial frame and returns a simulation
// ready to step. Invalid parameters are reported as a *ConfigError.
func New(p Parameters, opts ...Option) (*Simulation, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if o.log == nil {
		o.log = slog.New(slog.DiscardHandler)
	}

	s := &Simulation{
		params: p,
		env:    NewEnvironment(&p),
		traj:   NewTrajectory(),
		ready:  true,
		log:    o.log,
		onStep: o.onStep,
	}
	s.eval = NewEvaluator(&s.params, s.env)

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	var ps []Particle
	if o.initial != nil {
		var err error
		if ps, err = s.adopt(o.initial); err != nil {
			return nil, err
		}
	} else {
		ps = s.generate(rng)
	}
	if p.WeightJitter > 0 {
		s.jitter = make([]Jitter, p.Particles)
		for i := range s.jitter {
			for _, k := range ruleKinds {
				s.jitter[i][k] = 1 - p.WeightJitter*rng.Float64()
			}
		}
	}

	s.cur = Frame{Step: 0, Time: 0, Particles: ps}
	s.traj.Append(s.cur)
	s.log.Debug("simulation initialized",
		"particles", p.Particles,
		"dims", p.Dims,
		"boundary", p.Boundary,
		"neighbors", p.Neighbors,
		"steps", p.TotalSteps)
	return s, nil
}

// adopt validates and canonicalizes a caller supplied initial frame.
func (s *Simulation) adopt(initial []Particle) ([]Particle, error) {
	p := &s.params
	if len(initial) != p.Particles {
		return nil, configErrorf("initial_state", "has %d particles, want %d", len(initial), p.Particles)
	}
	ps := make([]Particle, len(initial))
	for i, q := range initial {
		switch {
		case !finite(q.Pos) || !finite(q.Vel):
			return nil, configErrorf("initial_state", "particle %d is not finite", i)
		case p.Dims == 2 && (q.Pos.Z != 0 || q.Vel.Z != 0):
			return nil, configErrorf("initial_state", "particle %d has a Z component in 2D", i)
		case r3.Norm(q.Vel) > p.MaxSpeed:
			return nil, configErrorf("initial_state", "particle %d is faster than max_speed", i)
		}
		ps[i] = s.env.Move(Particle{ID: i, Pos: q.Pos, Vel: q.Vel})
	}
	return ps, nil
}

// generate draws the initial frame from rng.
// Positions are drawn first, then velocities.
func (s *Simulation) generate(rng *rand.Rand) []Particle {
	p := &s.params
	ps := make([]Particle, p.Particles)
	switch p.Layout {
	case Lattice:
		side := 1
		for pow(side, p.Dims) < p.Particles {
			side++
		}
		spacing := p.Extent / float64(side)
		for i := range ps {
			var pos Vec
			for k, m := 0, i; k < p.Dims; k, m = k+1, m/side {
				pos = setAxis(pos, k, (float64(m%side)+0.5)*spacing)
			}
			ps[i] = Particle{ID: i, Pos: pos}
		}
	default:
		for i := range ps {
			var pos Vec
			for k := 0; k < p.Dims; k++ {
				pos = setAxis(pos, k, p.Extent*rng.Float64())
			}
			ps[i] = Particle{ID: i, Pos: pos}
		}
	}
	if p.InitialSpeed > 0 {
		for i := range ps {
			ps[i].Vel = r3.Scale(p.InitialSpeed, randomDirection(rng, p.Dims))
		}
	}
	return ps
}

// randomDirection returns a uniformly distributed unit vector.
func randomDirection(rng *rand.Rand, dims int) Vec {
	if dims == 2 {
		sin, cos := math.Sincos(2 * math.Pi * rng.Float64())
		return Vec{X: cos, Y: sin}
	}
	for {
		v := Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		if n := r3.Norm(v); n > 1e-9 {
			return r3.Scale(1/n, v)
		}
	}
}

// Phase returns the current lifecycle stage.
func (s *Simulation) Phase() Phase {
	switch {
	case s == nil || !s.ready:
		return Uninitialized
	case s.step >= s.params.TotalSteps:
		return Completed
	case s.step == 0:
		return Initialized
	}
	return Running
}

// Parameters returns the parameters of the run.
func (s *Simulation) Parameters() Parameters {
	return s.params
}

// Environment returns the geometry of the run.
func (s *Simulation) Environment() *Environment {
	return s.env
}

// StepCount returns the number of steps run so far.
func (s *Simulation) StepCount() int {
	return s.step
}

// Current returns the latest frame. It must not be modified.
func (s *Simulation) Current() Frame {
	return s.cur
}

// Trajectory returns the recorded frames, including the initial one.
func (s *Simulation) Trajectory() *Trajectory {
	return s.traj
}

// Step runs a single simulation step.
//
// All particles are updated from the same frozen previous frame, so the
// result does not depend on the order in which particles are processed.
func (s *Simulation) Step() error {
	switch s.Phase() {
	case Uninitialized:
		return ErrUninitialized
	case Completed:
		return ErrCompleted
	}

	prev := s.cur.Particles
	var idx Index
	if s.eval.Radius() > 0 && len(prev) > 1 {
		idx = NewIndex(s.params.Neighbors, s.env, s.cur.Positions(), s.eval.Radius())
	}
	next := make([]Particle, len(prev))
	if err := s.advance(idx, prev, next); err != nil {
		return err
	}

	s.step++
	s.cur = Frame{Step: s.step, Time: float64(s.step) * s.params.Dt, Particles: next}
	s.traj.Append(s.cur)

	s.log.Debug("step", "step", s.step, "time", s.cur.Time)
	if s.onStep != nil {
		s.onStep(s.cur)
	}
	if s.Phase() == Completed {
		s.log.Info("simulation completed", "steps", s.step, "frames", s.traj.Len())
	}
	return nil
}

// Run steps the simulation until it completes.
// Cancellation is only observed between steps.
func (s *Simulation) Run(ctx context.Context) error {
	for s.Phase() != Completed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// advance computes next from prev, fanning out over workers if requested.
// Workers share the read-only index and previous frame and write disjoint
// ranges of next; Wait is the step barrier.
func (s *Simulation) advance(idx Index, prev, next []Particle) error {
	workers := min(s.params.Workers, len(prev))
	if workers <= 1 {
		return s.advanceRange(idx, prev, next, 0, len(prev))
	}
	chunk := (len(prev) + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < len(prev); lo += chunk {
		hi := min(lo+chunk, len(prev))
		g.Go(func() error {
			return s.advanceRange(idx, prev, next, lo, hi)
		})
	}
	return g.Wait()
}

// advanceRange updates particles lo through hi-1.
func (s *Simulation) advanceRange(idx Index, prev, next []Particle, lo, hi int) error {
	var ids []int
	var ns []Neighbor
	for i := lo; i < hi; i++ {
		if idx != nil {
			ids, ns = s.eval.Gather(idx, prev, i, ids, ns)
		}
		j := noJitter
		if s.jitter != nil {
			j = s.jitter[i]
		}
		force := s.eval.Steer(prev[i], ns, j)
		p := Integrate(prev[i], force, s.env, s.params.MaxSpeed)
		if !finite(p.Pos) || !finite(p.Vel) {
			return &NumericalError{Step: s.step + 1, Particle: i}
		}
		next[i] = p
	}
	return nil
}
