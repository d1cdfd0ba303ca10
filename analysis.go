package fishswarm

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Polarization returns the norm of the mean heading of the particles,
// 1 for a perfectly aligned school and close to 0 for a disordered one.
// Particles at rest count as having no heading.
func Polarization(f Frame) float64 {
	if len(f.Particles) == 0 {
		return 0
	}
	var sum Vec
	for _, p := range f.Particles {
		sum = r3.Add(sum, p.Direction())
	}
	return r3.Norm(sum) / float64(len(f.Particles))
}

// Groups partitions the particles into groups such that two particles within
// maxDist of each other belong to the same group. It returns the group of each
// particle and the number of groups. Groups are numbered in order of their
// smallest particle ID.
func Groups(f Frame, env *Environment, maxDist float64) (labels []int, count int) {
	n := len(f.Particles)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	idx := NewGrid(env, f.Positions(), maxDist)
	var ids []int
	for i := 0; i < n; i++ {
		ids = idx.Neighbors(i, maxDist, ids[:0])
		for _, j := range ids {
			a, b := find(i), find(j)
			if a < b {
				parent[b] = a
			} else if b < a {
				parent[a] = b
			}
		}
	}

	labels = make([]int, n)
	names := make(map[int]int)
	for i := 0; i < n; i++ {
		r := find(i)
		g, ok := names[r]
		if !ok {
			g = count
			names[r] = g
			count++
		}
		labels[i] = g
	}
	return labels, count
}

// NearestNeighborDistances returns, for every particle, the distance to its
// closest neighbor, or +Inf when the frame holds a single particle.
func NearestNeighborDistances(f Frame, env *Environment) []float64 {
	ds := make([]float64, len(f.Particles))
	for i, p := range f.Particles {
		ds[i] = math.Inf(1)
		for j, q := range f.Particles {
			if i != j {
				ds[i] = math.Min(ds[i], env.Dist(p.Pos, q.Pos))
			}
		}
	}
	return ds
}

// A Summary contains order parameters of one frame.
type Summary struct {
	Step         int
	Time         float64
	Polarization float64
	Groups       int
	MeanSpeed    float64
	StdSpeed     float64
	MeanNearest  float64 // mean nearest neighbor distance, NaN below two particles
}

// Summarize computes the order parameters of f.
// Particles within groupDist of each other are considered part of the same group.
func Summarize(f Frame, env *Environment, groupDist float64) Summary {
	s := Summary{Step: f.Step, Time: f.Time, Polarization: Polarization(f), MeanNearest: math.NaN()}
	if len(f.Particles) == 0 {
		return s
	}
	_, s.Groups = Groups(f, env, groupDist)

	speeds := make([]float64, len(f.Particles))
	for i, p := range f.Particles {
		speeds[i] = p.Speed()
	}
	if len(speeds) > 1 {
		s.MeanSpeed, s.StdSpeed = stat.MeanStdDev(speeds, nil)
		s.MeanNearest = stat.Mean(NearestNeighborDistances(f, env), nil)
	} else {
		s.MeanSpeed = speeds[0]
	}
	return s
}
