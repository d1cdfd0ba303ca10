package fishswarm

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// A Particle is the state of one individual at one instant.
type Particle struct {
	ID  int // stable index in the swarm, never reused within a run
	Pos Vec // position
	Vel Vec // velocity
	Acc Vec // net steering applied during the step that produced this record
}

// Speed returns the norm of the velocity.
func (p Particle) Speed() float64 {
	return r3.Norm(p.Vel)
}

// Heading returns the direction of motion in the XY plane in radians.
// A particle at rest has heading 0.
func (p Particle) Heading() float64 {
	if p.Vel.X == 0 && p.Vel.Y == 0 {
		return 0
	}
	return math.Atan2(p.Vel.Y, p.Vel.X)
}

// Direction returns the unit vector along the velocity,
// or the zero vector for a particle at rest.
func (p Particle) Direction() Vec {
	n := r3.Norm(p.Vel)
	if n == 0 {
		return Vec{}
	}
	return r3.Scale(1/n, p.Vel)
}

// A Frame is the state of the whole swarm at one step.
// Particles are ordered by ID.
type Frame struct {
	Step      int
	Time      float64
	Particles []Particle
}

// Len returns the number of particles in the frame.
func (f Frame) Len() int {
	return len(f.Particles)
}

// Positions returns the positions of all particles in ID order.
func (f Frame) Positions() []Vec {
	ps := make([]Vec, len(f.Particles))
	for i, p := range f.Particles {
		ps[i] = p.Pos
	}
	return ps
}
