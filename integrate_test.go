package fishswarm

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestIntegrateBoundaries(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mode    BoundaryMode
		pos     Vec
		vel     Vec
		wantPos Vec
		wantVel Vec
	}{
		{"soft inside", Soft, Vec{X: 5, Y: 5}, Vec{X: 1, Y: -1}, Vec{X: 6, Y: 4}, Vec{X: 1, Y: -1}},
		{"soft overshoot", Soft, Vec{X: 9.5, Y: 5}, Vec{X: 1}, Vec{X: 10.5, Y: 5}, Vec{X: 1}},
		{"periodic high", Periodic, Vec{X: 9.5, Y: 5}, Vec{X: 1}, Vec{X: 0.5, Y: 5}, Vec{X: 1}},
		{"periodic low", Periodic, Vec{X: 5, Y: 0.25}, Vec{Y: -1}, Vec{X: 5, Y: 9.25}, Vec{Y: -1}},
		{"reflective high", Reflective, Vec{X: 9.5, Y: 5}, Vec{X: 1}, Vec{X: 9.5, Y: 5}, Vec{X: -1}},
		{"reflective low", Reflective, Vec{X: 5, Y: 0.5}, Vec{X: 0.5, Y: -1}, Vec{X: 5.5, Y: 0.5}, Vec{X: 0.5, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnvironment(&Parameters{Dims: 2, Extent: 10, Dt: 1, Boundary: tt.mode})
			got := Integrate(Particle{Pos: tt.pos, Vel: tt.vel}, Vec{}, env, 2)
			if !near(got.Pos, tt.wantPos) || !near(got.Vel, tt.wantVel) {
				t.Errorf("got pos %v vel %v, want pos %v vel %v", got.Pos, got.Vel, tt.wantPos, tt.wantVel)
			}
		})
	}
}

func TestPeriodicWrapDelta(t *testing.T) {
	t.Parallel()
	const extent, delta = 10.0, 0.75
	env := NewEnvironment(&Parameters{Dims: 3, Extent: extent, Dt: 0.5, Boundary: Periodic})
	p := Particle{Pos: Vec{X: 1, Y: 1, Z: extent - 0.25}, Vel: Vec{Z: 2}}
	got := Integrate(p, Vec{}, env, 5)
	if got.Pos.Z != delta {
		t.Errorf("wrapped Z = %v, want %v", got.Pos.Z, delta)
	}
}

func TestIntegrateSemiImplicit(t *testing.T) {
	t.Parallel()
	env := NewEnvironment(&Parameters{Dims: 2, Extent: 100, Dt: 0.5, Boundary: Soft})
	p := Particle{Pos: Vec{X: 10, Y: 10}, Vel: Vec{X: 1}}
	got := Integrate(p, Vec{Y: 2}, env, 100)
	// velocity is updated before the position
	if want := (Vec{X: 1, Y: 1}); got.Vel != want {
		t.Errorf("vel = %v, want %v", got.Vel, want)
	}
	if want := (Vec{X: 10.5, Y: 10.5}); got.Pos != want {
		t.Errorf("pos = %v, want %v", got.Pos, want)
	}
	if want := (Vec{Y: 2}); got.Acc != want {
		t.Errorf("acc = %v, want %v", got.Acc, want)
	}
}

func TestIntegrateSpeedClamp(t *testing.T) {
	t.Parallel()
	env := NewEnvironment(&Parameters{Dims: 2, Extent: 100, Dt: 1, Boundary: Soft})
	got := Integrate(Particle{Pos: Vec{X: 50, Y: 50}}, Vec{X: 30, Y: 40}, env, 5)
	if s := r3.Norm(got.Vel); math.Abs(s-5) > 1e-12 {
		t.Errorf("speed = %v, want 5", s)
	}
	// direction is preserved
	if !near(got.Vel, Vec{X: 3, Y: 4}) {
		t.Errorf("vel = %v, want (3, 4)", got.Vel)
	}
}

func TestReflectiveLargeOvershoot(t *testing.T) {
	t.Parallel()
	env := NewEnvironment(&Parameters{Dims: 2, Extent: 10, Dt: 1, Boundary: Reflective})
	got := Integrate(Particle{Pos: Vec{X: 5, Y: 5}}, Vec{X: 50}, env, 100)
	if got.Pos.X < 0 || got.Pos.X > 10 {
		t.Errorf("pos = %v, want inside the domain", got.Pos)
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()
	tests := []struct{ x, want float64 }{
		{0, 0},
		{10, 0},
		{10.5, 0.5},
		{-0.5, 9.5},
		{-1e-18, 0},
		{25, 5},
	}
	for _, tt := range tests {
		if got := wrap(tt.x, 10); math.Abs(got-tt.want) > 1e-12 || got >= 10 {
			t.Errorf("wrap(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}
