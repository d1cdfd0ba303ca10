package fishswarm

import (
	"fmt"
	"math"
	"strings"
)

// A BoundaryMode is the policy applied to particles reaching the edge of the domain.
type BoundaryMode int

const (
	// Soft leaves positions untouched; the avoidance rule steers particles back.
	Soft BoundaryMode = iota
	// Periodic wraps each coordinate modulo the domain extent.
	Periodic
	// Reflective mirrors positions back inside and negates the velocity component.
	Reflective
)

var boundaryNames = [...]string{Soft: "soft", Periodic: "periodic", Reflective: "reflective"}

func (m BoundaryMode) String() string {
	if m < 0 || int(m) >= len(boundaryNames) {
		return fmt.Sprintf("BoundaryMode(%d)", int(m))
	}
	return boundaryNames[m]
}

// ParseBoundaryMode parses "soft", "periodic" or "reflective".
// "open" is accepted as a synonym of "soft".
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	switch strings.ToLower(s) {
	case "soft", "open":
		return Soft, nil
	case "periodic":
		return Periodic, nil
	case "reflective":
		return Reflective, nil
	}
	return 0, configErrorf("boundary_mode", "unknown mode %q", s)
}

// A Layout chooses how initial positions are generated.
type Layout int

const (
	// Uniform scatters particles uniformly over the domain.
	Uniform Layout = iota
	// Lattice places particles on a regular grid centered in the domain.
	Lattice
)

var layoutNames = [...]string{Uniform: "uniform", Lattice: "lattice"}

func (l Layout) String() string {
	if l < 0 || int(l) >= len(layoutNames) {
		return fmt.Sprintf("Layout(%d)", int(l))
	}
	return layoutNames[l]
}

// ParseLayout parses "uniform" (or "random") and "lattice".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "uniform", "random", "":
		return Uniform, nil
	case "lattice":
		return Lattice, nil
	}
	return 0, configErrorf("layout", "unknown layout %q", s)
}

// RuleParams holds the settings of one steering rule.
type RuleParams struct {
	Enabled bool
	Radius  float64 // interaction radius, or boundary margin for avoidance
	Weight  float64
	// MaxContribution bounds the weighted contribution of the rule.
	// Zero leaves it bounded only by the largest finite magnitude.
	MaxContribution float64
}

// Parameters contains the immutable configuration of a run.
type Parameters struct {
	Particles  int          // number of particles N
	Dims       int          // 2 or 3
	Extent     float64      // side of the cubic domain [0, Extent)^Dims
	Boundary   BoundaryMode // boundary policy
	Dt         float64      // time step
	TotalSteps int          // number of integration steps

	Separation RuleParams
	Alignment  RuleParams
	Cohesion   RuleParams
	Avoidance  RuleParams // only active with Soft boundaries

	MaxSpeed    float64 // speed limit applied after every step
	MaxForce    float64 // limit on the combined steering
	MinDistance float64 // floor on distances used by separation

	InitialSpeed float64 // speed of generated initial velocities, zero for particles at rest
	Layout       Layout  // initial positions
	WeightJitter float64 // per-particle weight multipliers are drawn in [1-WeightJitter, 1]
	Seed         uint64  // seed of the random generator used during initialization

	Neighbors IndexStrategy // neighbor index implementation
	Workers   int           // goroutines per step, 0 or 1 for sequential
}

// DefaultParameters returns a reasonable two-dimensional school.
func DefaultParameters() Parameters {
	return Parameters{
		Particles:    200,
		Dims:         2,
		Extent:       100,
		Boundary:     Periodic,
		Dt:           0.1,
		TotalSteps:   1000,
		Separation:   RuleParams{Enabled: true, Radius: 2, Weight: 1.5, MaxContribution: 5},
		Alignment:    RuleParams{Enabled: true, Radius: 5, Weight: 1, MaxContribution: 2},
		Cohesion:     RuleParams{Enabled: true, Radius: 8, Weight: 0.5, MaxContribution: 2},
		Avoidance:    RuleParams{Enabled: true, Radius: 5, Weight: 2, MaxContribution: 5},
		MaxSpeed:     2,
		MaxForce:     5,
		MinDistance:  1e-3,
		InitialSpeed: 1,
		Layout:       Uniform,
		WeightJitter: 0,
		Seed:         1,
		Neighbors:    GridIndex,
		Workers:      0,
	}
}

// Rule returns the settings of the given rule kind.
func (p *Parameters) Rule(k RuleKind) RuleParams {
	switch k {
	case Separation:
		return p.Separation
	case Alignment:
		return p.Alignment
	case Cohesion:
		return p.Cohesion
	default:
		return p.Avoidance
	}
}

// active reports whether rule k contributes under these parameters.
func (p *Parameters) active(k RuleKind) bool {
	r := p.Rule(k)
	if k == Avoidance {
		return r.Enabled && p.Boundary == Soft
	}
	return r.Enabled
}

// InteractionRadius returns the largest radius among enabled neighbor rules.
func (p *Parameters) InteractionRadius() float64 {
	var max float64
	for _, k := range neighborKinds {
		if r := p.Rule(k); r.Enabled && r.Radius > max {
			max = r.Radius
		}
	}
	return max
}

// Validate checks every parameter and returns a *ConfigError for the first
// invalid one.
func (p *Parameters) Validate() error {
	switch {
	case p.Particles < 0:
		return configErrorf("particle_count", "must be non-negative, got %d", p.Particles)
	case p.Dims != 2 && p.Dims != 3:
		return configErrorf("dimensions", "must be 2 or 3, got %d", p.Dims)
	case !positive(p.Extent):
		return configErrorf("domain_extent", "must be positive and finite, got %g", p.Extent)
	case p.Boundary < Soft || p.Boundary > Reflective:
		return configErrorf("boundary_mode", "unknown mode %d", int(p.Boundary))
	case !positive(p.Dt):
		return configErrorf("dt", "must be positive and finite, got %g", p.Dt)
	case p.TotalSteps < 0:
		return configErrorf("total_steps", "must be non-negative, got %d", p.TotalSteps)
	case !positive(p.MaxSpeed):
		return configErrorf("max_speed", "must be positive and finite, got %g", p.MaxSpeed)
	case !positive(p.MaxForce):
		return configErrorf("max_force", "must be positive and finite, got %g", p.MaxForce)
	case !positive(p.MinDistance):
		return configErrorf("min_distance", "must be positive and finite, got %g", p.MinDistance)
	case !finiteProduct(p.MaxForce, p.Dt):
		return configErrorf("max_force", "%g overflows with dt %g", p.MaxForce, p.Dt)
	case !finiteProduct(p.MaxSpeed, p.Dt):
		return configErrorf("max_speed", "%g overflows with dt %g", p.MaxSpeed, p.Dt)
	case !finiteProduct(float64(max(p.Particles, 1)), 1/p.MinDistance):
		return configErrorf("min_distance", "%g is too small for %d particles", p.MinDistance, p.Particles)
	case !finiteProduct(4*float64(max(p.Particles, 1)), p.Extent+float64(p.TotalSteps)*p.MaxSpeed*p.Dt):
		return configErrorf("max_speed", "particles may travel beyond representable positions in %d steps", p.TotalSteps)
	case !nonNegative(p.InitialSpeed) || p.InitialSpeed > p.MaxSpeed:
		return configErrorf("initial_speed", "must be within [0, max_speed], got %g", p.InitialSpeed)
	case p.Layout < Uniform || p.Layout > Lattice:
		return configErrorf("layout", "unknown layout %d", int(p.Layout))
	case !(p.WeightJitter >= 0 && p.WeightJitter < 1):
		return configErrorf("weight_jitter", "must be within [0, 1), got %g", p.WeightJitter)
	case p.Neighbors < GridIndex || p.Neighbors > BruteForceIndex:
		return configErrorf("neighbors", "unknown strategy %d", int(p.Neighbors))
	case p.Workers < 0:
		return configErrorf("workers", "must be non-negative, got %d", p.Workers)
	}

	for _, k := range ruleKinds {
		r := p.Rule(k)
		name := k.String()
		switch {
		case !nonNegative(r.Radius):
			return configErrorf(name+".radius", "must be non-negative and finite, got %g", r.Radius)
		case !nonNegative(r.Weight):
			return configErrorf(name+".weight", "must be non-negative and finite, got %g", r.Weight)
		case !nonNegative(r.MaxContribution):
			return configErrorf(name+".max_contribution", "must be non-negative and finite, got %g", r.MaxContribution)
		}
		if !r.Enabled {
			continue
		}
		if k == Avoidance {
			if p.Boundary == Soft && (r.Radius == 0 || 2*r.Radius >= p.Extent) {
				return configErrorf(name+".radius", "margin must be within (0, domain_extent/2), got %g", r.Radius)
			}
			continue
		}
		// the minimum image convention only makes sense up to half the domain
		if p.Boundary == Periodic && 2*r.Radius > p.Extent {
			return configErrorf(name+".radius", "%g exceeds half the periodic domain extent %g", r.Radius, p.Extent)
		}
	}
	return nil
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// finiteProduct reports whether a*b is a finite number.
func finiteProduct(a, b float64) bool {
	x := a * b
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 1)
}
