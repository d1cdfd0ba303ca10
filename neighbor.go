package fishswarm

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// An IndexStrategy selects a neighbor index implementation.
type IndexStrategy int

const (
	// GridIndex buckets particles in a uniform cell list.
	GridIndex IndexStrategy = iota
	// BruteForceIndex checks every pair of particles.
	BruteForceIndex
)

func (s IndexStrategy) String() string {
	switch s {
	case GridIndex:
		return "grid"
	case BruteForceIndex:
		return "brute"
	}
	return fmt.Sprintf("IndexStrategy(%d)", int(s))
}

// ParseIndexStrategy parses "grid" or "brute".
func ParseIndexStrategy(s string) (IndexStrategy, error) {
	switch strings.ToLower(s) {
	case "grid", "":
		return GridIndex, nil
	case "brute", "bruteforce", "brute-force":
		return BruteForceIndex, nil
	}
	return 0, configErrorf("neighbors", "unknown strategy %q", s)
}

// An Index answers neighborhood queries over a fixed set of positions.
// Implementations are read-only once built and safe for concurrent queries.
type Index interface {
	// Neighbors appends to dst the indices j != i such that the distance
	// between particles i and j is at most radius, in increasing order.
	Neighbors(i int, radius float64, dst []int) []int
}

// NewIndex builds an index over pos using strategy s.
// cellSize is the largest radius the grid is tuned for; queries with
// larger radii stay correct but inspect more cells.
func NewIndex(s IndexStrategy, env *Environment, pos []Vec, cellSize float64) Index {
	if s == BruteForceIndex {
		return NewBruteForce(env, pos)
	}
	return NewGrid(env, pos, cellSize)
}

// within is the closed-ball predicate shared by every index and rule.
func within(d Vec, radius float64) bool {
	return r3.Norm2(d) <= radius*radius
}

// BruteForce is the O(N²) reference index.
type BruteForce struct {
	env *Environment
	pos []Vec
}

// NewBruteForce returns a brute force index over pos.
func NewBruteForce(env *Environment, pos []Vec) *BruteForce {
	return &BruteForce{env: env, pos: pos}
}

// Neighbors implements Index.
func (b *BruteForce) Neighbors(i int, radius float64, dst []int) []int {
	if radius <= 0 {
		return dst
	}
	p := b.pos[i]
	for j, q := range b.pos {
		if j != i && within(b.env.Delta(p, q), radius) {
			dst = append(dst, j)
		}
	}
	return dst
}

// Grid is a uniform cell list covering the domain.
//
// Particles are bucketed by a counting sort into a flat array so that the
// members of each cell are contiguous and in increasing index order.
// Particles outside the domain (soft boundaries) are clamped into the edge
// cells, which keeps every neighbor within the scanned block.
type Grid struct {
	env   *Environment
	pos   []Vec
	n     int     // cells per active axis
	side  float64 // side of a cell, at least the requested cell size
	start []int   // members of cell c are items[start[c]:start[c+1]]
	items []int
}

// maxCells bounds the number of cells relative to the number of particles.
func maxCells(n int) int {
	return max(64, 4*n)
}

// NewGrid buckets pos into cells of side at least cellSize.
func NewGrid(env *Environment, pos []Vec, cellSize float64) *Grid {
	g := &Grid{env: env, pos: pos, n: 1}
	limit := maxCells(len(pos))
	if cellSize > 0 && cellSize < env.Extent {
		g.n = int(math.Min(env.Extent/cellSize, float64(limit)))
	}
	for g.n > 1 && pow(g.n, env.Dims) > limit {
		g.n--
	}
	g.side = env.Extent / float64(g.n)

	ncells := pow(g.n, env.Dims)
	g.start = make([]int, ncells+1)
	g.items = make([]int, len(pos))
	cells := make([]int, len(pos))
	for i, p := range pos {
		c := g.cellIndex(g.coords(p))
		cells[i] = c
		g.start[c+1]++
	}
	for c := 0; c < ncells; c++ {
		g.start[c+1] += g.start[c]
	}
	next := append([]int(nil), g.start[:ncells]...)
	for i, c := range cells {
		g.items[next[c]] = i
		next[c]++
	}
	return g
}

// Cells returns the number of cells per active axis.
func (g *Grid) Cells() int {
	return g.n
}

// coords returns the clamped cell coordinates of a point.
func (g *Grid) coords(p Vec) [3]int {
	var c [3]int
	for k := 0; k < g.env.Dims; k++ {
		x := int(math.Floor(axis(p, k) / g.side))
		c[k] = min(max(x, 0), g.n-1)
	}
	return c
}

func (g *Grid) cellIndex(c [3]int) int {
	return (c[2]*g.n+c[1])*g.n + c[0]
}

// span returns the distinct cell coordinates within reach of c along one axis.
func (g *Grid) span(c, reach int, dst []int) []int {
	if g.env.Boundary == Periodic {
		if 2*reach+1 >= g.n {
			for x := 0; x < g.n; x++ {
				dst = append(dst, x)
			}
			return dst
		}
		for d := -reach; d <= reach; d++ {
			dst = append(dst, (c+d+g.n)%g.n)
		}
		return dst
	}
	for x := max(c-reach, 0); x <= min(c+reach, g.n-1); x++ {
		dst = append(dst, x)
	}
	return dst
}

// Neighbors implements Index.
func (g *Grid) Neighbors(i int, radius float64, dst []int) []int {
	if radius <= 0 {
		return dst
	}
	p := g.pos[i]
	c := g.coords(p)
	reach := g.n
	if r := math.Ceil(radius / g.side); r < float64(g.n) {
		reach = int(r)
	}

	var buf [3][]int
	var spans [3][]int
	for k := 0; k < 3; k++ {
		if k < g.env.Dims {
			spans[k] = g.span(c[k], reach, buf[k][:0])
		} else {
			spans[k] = append(buf[k][:0], 0)
		}
	}

	first := len(dst)
	for _, z := range spans[2] {
		for _, y := range spans[1] {
			for _, x := range spans[0] {
				cell := g.cellIndex([3]int{x, y, z})
				for _, j := range g.items[g.start[cell]:g.start[cell+1]] {
					if j != i && within(g.env.Delta(p, g.pos[j]), radius) {
						dst = append(dst, j)
					}
				}
			}
		}
	}
	slices.Sort(dst[first:])
	return dst
}

// pow returns n to the power d for small non-negative d.
func pow(n, d int) int {
	r := 1
	for ; d > 0; d-- {
		r *= n
	}
	return r
}
