package fishswarm

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
)

func randomPositions(rng *rand.Rand, n, dims int, lo, hi float64) []Vec {
	ps := make([]Vec, n)
	for i := range ps {
		for k := 0; k < dims; k++ {
			ps[i] = setAxis(ps[i], k, lo+(hi-lo)*rng.Float64())
		}
	}
	return ps
}

func TestGridMatchesBruteForce(t *testing.T) {
	t.Parallel()
	const extent = 40.0
	rng := rand.New(rand.NewPCG(7, 11))

	for _, dims := range []int{2, 3} {
		for _, mode := range []BoundaryMode{Soft, Periodic, Reflective} {
			for _, cellSize := range []float64{0, 3, 9} {
				lo, hi := 0.0, extent
				if mode == Soft {
					// soft boundaries let particles overshoot
					lo, hi = -5, extent+5
				}
				pos := randomPositions(rng, 300, dims, lo, hi)
				if mode == Periodic {
					for i := range pos {
						pos[i] = periodicMove(extent, dims)(Particle{Pos: pos[i]}).Pos
					}
				}
				env := NewEnvironment(&Parameters{Dims: dims, Extent: extent, Boundary: mode})
				brute := NewBruteForce(env, pos)
				grid := NewGrid(env, pos, cellSize)

				name := fmt.Sprintf("%dD/%s/cell=%g", dims, mode, cellSize)
				t.Run(name, func(t *testing.T) {
					for _, radius := range []float64{-1, 0, 0.5, 3, 7, 20} {
						for i := range pos {
							want := brute.Neighbors(i, radius, nil)
							got := grid.Neighbors(i, radius, nil)
							if !slices.Equal(got, want) {
								t.Fatalf("particle %d radius %g: grid = %v, brute force = %v", i, radius, got, want)
							}
						}
					}
				})
			}
		}
	}
}

func TestNeighborsEdgeCases(t *testing.T) {
	t.Parallel()
	pos := []Vec{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 1}}
	env := NewEnvironment(&Parameters{Dims: 2, Extent: 10, Boundary: Soft})

	for _, strategy := range []IndexStrategy{GridIndex, BruteForceIndex} {
		idx := NewIndex(strategy, env, pos, 3)
		t.Run(strategy.String(), func(t *testing.T) {
			if got := idx.Neighbors(0, 0, nil); len(got) != 0 {
				t.Errorf("radius 0: got %v, want none", got)
			}
			if got := idx.Neighbors(0, -2, nil); len(got) != 0 {
				t.Errorf("negative radius: got %v, want none", got)
			}
			// ties at exactly the radius are included, self never is
			got := idx.Neighbors(0, 3, nil)
			if want := []int{1, 2, 3}; !slices.Equal(got, want) {
				t.Errorf("radius 3: got %v, want %v", got, want)
			}
			// dst is appended to
			got = idx.Neighbors(1, 3, []int{42})
			if want := []int{42, 0, 2, 3}; !slices.Equal(got, want) {
				t.Errorf("append: got %v, want %v", got, want)
			}
		})
	}
}

func TestPeriodicNeighborsAcrossEdge(t *testing.T) {
	t.Parallel()
	pos := []Vec{{X: 0.5, Y: 5}, {X: 9.5, Y: 5}, {X: 5, Y: 5}}
	env := NewEnvironment(&Parameters{Dims: 2, Extent: 10, Boundary: Periodic})
	for _, strategy := range []IndexStrategy{GridIndex, BruteForceIndex} {
		got := NewIndex(strategy, env, pos, 2).Neighbors(0, 1, nil)
		if want := []int{1}; !slices.Equal(got, want) {
			t.Errorf("%s: got %v, want %v", strategy, got, want)
		}
	}
}

func TestGridCellCount(t *testing.T) {
	t.Parallel()
	pos := make([]Vec, 100)
	tests := []struct {
		dims     int
		cellSize float64
		want     int
	}{
		{2, 10, 10},
		{2, 30, 3},
		{2, 0, 1},
		{2, 200, 1},
		{2, 0.01, 20}, // bounded by 4 cells per particle
		{3, 0.01, 7},
	}
	for _, tt := range tests {
		env := NewEnvironment(&Parameters{Dims: tt.dims, Extent: 100, Boundary: Soft})
		if got := NewGrid(env, pos, tt.cellSize).Cells(); got != tt.want {
			t.Errorf("%dD cell size %g: got %d cells per axis, want %d", tt.dims, tt.cellSize, got, tt.want)
		}
	}
}

func TestParseIndexStrategy(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]IndexStrategy{"grid": GridIndex, "Brute": BruteForceIndex, "brute-force": BruteForceIndex} {
		got, err := ParseIndexStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseIndexStrategy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseIndexStrategy("kdtree"); err == nil {
		t.Error("ParseIndexStrategy(kdtree) succeeded")
	}
}
