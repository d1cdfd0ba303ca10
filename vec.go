package fishswarm

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// A Vec is a position, velocity or steering vector.
// Two-dimensional simulations keep Z at zero.
type Vec = r3.Vec

// axis returns the k-th coordinate of v.
func axis(v Vec, k int) float64 {
	switch k {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// setAxis returns v with its k-th coordinate replaced by x.
func setAxis(v Vec, k int, x float64) Vec {
	switch k {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
	return v
}

// clampNorm rescales v uniformly so that |v| <= max.
// A non-positive max leaves v untouched. Infinite components, or a norm
// that overflows, still yield a finite vector of norm max.
func clampNorm(v Vec, max float64) Vec {
	if max <= 0 {
		return v
	}
	n := r3.Norm(v)
	if n <= max {
		return v
	}
	if math.IsInf(n, 1) {
		v = dominant(v)
		n = r3.Norm(v)
	}
	return r3.Scale(max/n, v)
}

// dominant returns a finite vector pointing like v, whose largest
// component has magnitude 1. Infinite components win over finite ones.
func dominant(v Vec) Vec {
	s := math.Max(math.Abs(v.X), math.Max(math.Abs(v.Y), math.Abs(v.Z)))
	if !math.IsInf(s, 1) {
		return r3.Scale(1/s, v)
	}
	sign := func(x float64) float64 {
		if math.IsInf(x, 0) {
			return math.Copysign(1, x)
		}
		return 0
	}
	return Vec{X: sign(v.X), Y: sign(v.Y), Z: sign(v.Z)}
}

// finite reports whether every coordinate of v is a finite number.
func finite(v Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
