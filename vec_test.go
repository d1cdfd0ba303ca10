package fishswarm

import (
	"math"
	"testing"
)

func TestClampNorm(t *testing.T) {
	t.Parallel()
	inf := math.Inf(1)
	tests := []struct {
		name string
		v    Vec
		max  float64
		want Vec
	}{
		{"below", Vec{X: 1}, 2, Vec{X: 1}},
		{"above", Vec{X: 30, Y: 40}, 5, Vec{X: 3, Y: 4}},
		{"unbounded", Vec{X: 30, Y: 40}, 0, Vec{X: 30, Y: 40}},
		{"infinite component", Vec{X: -inf, Y: 7}, 2, Vec{X: -2}},
		{"two infinite components", Vec{X: inf, Y: -inf}, math.Sqrt2, Vec{X: 1, Y: -1}},
		{"overflowing norm", Vec{X: math.MaxFloat64, Y: math.MaxFloat64}, math.Sqrt2, Vec{X: 1, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampNorm(tt.v, tt.max)
			if !finite(got) || !near(got, tt.want) {
				t.Errorf("clampNorm(%v, %g) = %v, want %v", tt.v, tt.max, got, tt.want)
			}
		})
	}
}
