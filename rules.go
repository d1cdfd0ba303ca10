package fishswarm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// A RuleKind identifies one of the steering rules.
type RuleKind int

const (
	Separation RuleKind = iota // steer away from close neighbors
	Alignment                  // match the mean velocity of neighbors
	Cohesion                   // steer toward the centroid of neighbors
	Avoidance                  // steer back inside near the domain boundary

	numRuleKinds = iota
)

// ruleKinds is the fixed evaluation and summation order.
var ruleKinds = [numRuleKinds]RuleKind{Separation, Alignment, Cohesion, Avoidance}

// neighborKinds are the rules that depend on neighbors.
var neighborKinds = [...]RuleKind{Separation, Alignment, Cohesion}

var ruleNames = [numRuleKinds]string{"separation", "alignment", "cohesion", "avoidance"}

func (k RuleKind) String() string {
	if k < 0 || k >= numRuleKinds {
		return fmt.Sprintf("RuleKind(%d)", int(k))
	}
	return ruleNames[k]
}

// A Neighbor is another particle as seen from a focal particle.
type Neighbor struct {
	Particle
	Delta Vec     // displacement from the focal particle to the neighbor
	Dist  float64 // norm of Delta
}

// A Rule is a steering rule with its settings.
type Rule struct {
	Kind RuleKind
	RuleParams
}

// Contribution returns the unweighted steering of rule r for particle self.
// ns may contain neighbors beyond the rule radius; they are ignored.
func (r Rule) Contribution(self Particle, ns []Neighbor, env *Environment) Vec {
	switch r.Kind {
	case Separation:
		return separation(self, ns, r.Radius, env.MinDistance)
	case Alignment:
		return alignment(self, ns, r.Radius)
	case Cohesion:
		return cohesion(ns, r.Radius)
	case Avoidance:
		return avoidance(self, env, r.Radius)
	}
	return Vec{}
}

// separation sums unit vectors pointing away from each close neighbor,
// weighted by the inverse of the distance floored at minDist.
func separation(self Particle, ns []Neighbor, radius, minDist float64) Vec {
	var v Vec
	for _, n := range ns {
		if !within(n.Delta, radius) {
			continue
		}
		if n.Dist == 0 {
			// coincident particles split along X by index
			x := 1 / minDist
			if self.ID < n.ID {
				x = -x
			}
			v.X += x
			continue
		}
		// divide rather than scale by 1/Dist, which overflows for tiny distances
		away := Vec{X: -n.Delta.X / n.Dist, Y: -n.Delta.Y / n.Dist, Z: -n.Delta.Z / n.Dist}
		v = r3.Add(v, r3.Scale(1/max(n.Dist, minDist), away))
	}
	return v
}

// alignment returns the mean velocity of neighbors minus the own velocity.
func alignment(self Particle, ns []Neighbor, radius float64) Vec {
	var sum Vec
	var count int
	for _, n := range ns {
		if within(n.Delta, radius) {
			sum = r3.Add(sum, n.Vel)
			count++
		}
	}
	if count == 0 {
		return Vec{}
	}
	return r3.Sub(r3.Scale(1/float64(count), sum), self.Vel)
}

// cohesion returns the vector from the particle to the centroid of its neighbors.
func cohesion(ns []Neighbor, radius float64) Vec {
	var sum Vec
	var count int
	for _, n := range ns {
		if within(n.Delta, radius) {
			sum = r3.Add(sum, n.Delta)
			count++
		}
	}
	if count == 0 {
		return Vec{}
	}
	return r3.Scale(1/float64(count), sum)
}

// avoidance pushes a particle inward along every axis where it is closer
// than margin to a wall. The push grows linearly from 0 at the margin to 1
// at the wall and keeps growing beyond it.
func avoidance(self Particle, env *Environment, margin float64) Vec {
	var v Vec
	if margin <= 0 {
		return v
	}
	for k := 0; k < env.Dims; k++ {
		x := axis(self.Pos, k)
		switch {
		case x < margin:
			v = setAxis(v, k, (margin-x)/margin)
		case x > env.Extent-margin:
			v = setAxis(v, k, -(x-(env.Extent-margin))/margin)
		}
	}
	return v
}

// Jitter holds per-particle multipliers of the rule weights, indexed by RuleKind.
type Jitter [numRuleKinds]float64

// noJitter leaves every weight unchanged.
var noJitter = Jitter{1, 1, 1, 1}

// An Evaluator combines the active rules into a single steering vector.
type Evaluator struct {
	env      *Environment
	rules    []Rule // active rules in evaluation order
	maxForce float64
	radius   float64
}

// NewEvaluator returns an evaluator for the rules enabled in p.
// Avoidance is only active with Soft boundaries.
func NewEvaluator(p *Parameters, env *Environment) *Evaluator {
	e := &Evaluator{env: env, maxForce: p.MaxForce, radius: p.InteractionRadius()}
	for _, k := range ruleKinds {
		// a zero weight would turn an infinite contribution into NaN
		if p.active(k) && p.Rule(k).Weight > 0 {
			e.rules = append(e.rules, Rule{Kind: k, RuleParams: p.Rule(k)})
		}
	}
	return e
}

// Rules returns the active rules in evaluation order.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Radius returns the neighborhood radius needed by the active rules.
func (e *Evaluator) Radius() float64 {
	return e.radius
}

// maxTerm bounds every weighted contribution so that the sum of all of
// them stays finite.
const maxTerm = math.MaxFloat64 / (2 * numRuleKinds)

// Steer returns the clamped weighted sum of the contributions of every
// active rule. Each weighted contribution is clamped to its own maximum
// before summation.
func (e *Evaluator) Steer(self Particle, ns []Neighbor, j Jitter) Vec {
	var sum Vec
	for _, r := range e.rules {
		limit := maxTerm
		if r.MaxContribution > 0 {
			limit = math.Min(limit, r.MaxContribution)
		}
		c := r3.Scale(r.Weight*j[r.Kind], r.Contribution(self, ns, e.env))
		sum = r3.Add(sum, clampNorm(c, limit))
	}
	return clampNorm(sum, e.maxForce)
}

// Gather resolves the neighbors of particle i in frame ps within the
// evaluator radius. ids and ns are scratch buffers reused across calls.
func (e *Evaluator) Gather(idx Index, ps []Particle, i int, ids []int, ns []Neighbor) ([]int, []Neighbor) {
	ids = idx.Neighbors(i, e.radius, ids[:0])
	ns = ns[:0]
	for _, j := range ids {
		d := e.env.Delta(ps[i].Pos, ps[j].Pos)
		ns = append(ns, Neighbor{Particle: ps[j], Delta: d, Dist: r3.Norm(d)})
	}
	return ids, ns
}
