package fishswarm

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// An Environment contains the geometry of the domain.
type Environment struct {
	Dims     int          // number of active coordinates
	Extent   float64      // side of the domain
	Dt       float64      // time step of the simulation
	Boundary BoundaryMode // policy implemented by Move and Delta

	// MinDistance is the floor applied to distances in inverse laws.
	MinDistance float64

	// Move canonicalizes a particle after its position was updated.
	// It implements the boundary conditions.
	Move func(p Particle) Particle

	// Delta returns the displacement pointing from u to v.
	// Under periodic boundaries it is the minimum image.
	Delta func(u, v Vec) Vec
}

// NewEnvironment returns the environment described by p.
func NewEnvironment(p *Parameters) *Environment {
	e := &Environment{
		Dims:     p.Dims,
		Extent:   p.Extent,
		Dt:       p.Dt,
		Boundary: p.Boundary,

		MinDistance: p.MinDistance,

		Move:  move,
		Delta: delta,
	}
	switch p.Boundary {
	case Periodic:
		e.Move = periodicMove(p.Extent, p.Dims)
		e.Delta = periodicDelta(p.Extent)
	case Reflective:
		e.Move = reflectiveMove(p.Extent, p.Dims)
	}
	return e
}

// Dist returns the distance between two points.
func (e *Environment) Dist(u, v Vec) float64 {
	return r3.Norm(e.Delta(u, v))
}

// Integrate advances p by one time step under the given steering force using
// semi-implicit Euler: the velocity is updated first, rescaled to maxSpeed,
// then used to update the position. Boundary conditions are applied last.
func Integrate(p Particle, force Vec, env *Environment, maxSpeed float64) Particle {
	p.Acc = force
	p.Vel = clampNorm(r3.Add(p.Vel, r3.Scale(env.Dt, force)), maxSpeed)
	p.Pos = r3.Add(p.Pos, r3.Scale(env.Dt, p.Vel))
	return env.Move(p)
}

// move is the trivial move function a.k.a. identity.
// It corresponds to soft or open boundaries.
func move(p Particle) Particle {
	return p
}

// reflectiveMove is a move function that mirrors particles back into [0, size].
func reflectiveMove(size float64, dims int) func(Particle) Particle {
	return func(p Particle) Particle {
		for k := 0; k < dims; k++ {
			x, v := axis(p.Pos, k), axis(p.Vel, k)
			if x < 0 {
				x, v = -x, -v
			}
			if x > size {
				x, v = 2*size-x, -v
			}
			// overshoot by more than the whole domain
			x = math.Min(math.Max(x, 0), size)
			p.Pos = setAxis(p.Pos, k, x)
			p.Vel = setAxis(p.Vel, k, v)
		}
		return p
	}
}

// periodicMove is a move function that wraps coordinates into [0, size).
func periodicMove(size float64, dims int) func(Particle) Particle {
	return func(p Particle) Particle {
		for k := 0; k < dims; k++ {
			p.Pos = setAxis(p.Pos, k, wrap(axis(p.Pos, k), size))
		}
		return p
	}
}

// wrap returns x modulo size in [0, size).
func wrap(x, size float64) float64 {
	x = math.Mod(x, size)
	if x < 0 {
		x += size
	}
	if x >= size {
		// x was a tiny negative number
		x = 0
	}
	return x
}

// delta is the trivial displacement.
func delta(u, v Vec) Vec {
	return r3.Sub(v, u)
}

// periodicDelta is a displacement that works in a cube with periodic boundary conditions.
func periodicDelta(size float64) func(u, v Vec) Vec {
	image := func(x float64) float64 {
		if 2*x <= -size {
			return x + size
		} else if 2*x > size {
			return x - size
		}
		return x
	}
	return func(u, v Vec) Vec {
		d := r3.Sub(v, u)
		return Vec{X: image(d.X), Y: image(d.Y), Z: image(d.Z)}
	}
}
