package hdf5

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/PrincetonUniversity/fishswarm"
)

func simulate(t *testing.T, n, steps int) (*fishswarm.Trajectory, fishswarm.Parameters) {
	t.Helper()
	p := fishswarm.DefaultParameters()
	p.Particles, p.TotalSteps, p.Extent = n, steps, 30
	s, err := fishswarm.New(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s.Trajectory(), p
}

func TestSaveLoad(t *testing.T) {
	traj, p := simulate(t, 20, 5)
	path := filepath.Join(t.TempDir(), "out", "run.h5")
	if err := Save(path, traj, p); err != nil {
		t.Fatal(err)
	}

	got, env, err := LoadTrajectory(path)
	if err != nil {
		t.Fatal(err)
	}
	if env == nil || env.Dims != p.Dims || env.Extent != p.Extent || env.Boundary != p.Boundary || env.Dt != p.Dt {
		t.Errorf("environment = %+v, want the saved geometry", env)
	}
	if got.Len() != traj.Len() {
		t.Fatalf("loaded %d frames, want %d", got.Len(), traj.Len())
	}
	for i, f := range traj.Frames() {
		g := got.Frame(i)
		if g.Step != f.Step || g.Time != f.Time || !slices.Equal(g.Particles, f.Particles) {
			t.Errorf("frame %d differs after a round trip", i)
		}
	}
}

func TestLoaderCycles(t *testing.T) {
	traj, p := simulate(t, 3, 2)
	path := filepath.Join(t.TempDir(), "run.h5")
	if err := Save(path, traj, p); err != nil {
		t.Fatal(err)
	}
	l, err := NewLoader(path, "particles")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	var steps []int
	for range 2 * l.Len() {
		f, err := l.Load()
		if err != nil {
			t.Fatal(err)
		}
		steps = append(steps, f.Step)
	}
	if want := []int{0, 1, 2, 0, 1, 2}; !slices.Equal(steps, want) {
		t.Errorf("loaded steps %v, want %v", steps, want)
	}
}

func TestSaveEmptySwarm(t *testing.T) {
	traj, p := simulate(t, 0, 3)
	path := filepath.Join(t.TempDir(), "empty.h5")
	if err := Save(path, traj, p); err != nil {
		t.Fatal(err)
	}
	got, _, err := LoadTrajectory(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 4 {
		t.Errorf("loaded %d frames, want 4", got.Len())
	}
}

func TestNewLoaderMissing(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "missing.h5"), "particles"); err == nil {
		t.Error("opened a missing file")
	}
}
