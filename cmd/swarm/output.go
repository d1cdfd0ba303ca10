package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PrincetonUniversity/fishswarm"
	"github.com/PrincetonUniversity/fishswarm/config"
	"github.com/PrincetonUniversity/fishswarm/hdf5"
	"github.com/PrincetonUniversity/fishswarm/store"
)

// Output formats, chosen by file extension.
const (
	formatHDF5   = "hdf5"
	formatSQLite = "sqlite"
)

func format(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".h5", ".hdf5":
		return formatHDF5, nil
	case ".db", ".sqlite", ".sqlite3":
		return formatSQLite, nil
	default:
		return "", fmt.Errorf("unsupported output extension %q (want .h5 or .db)", ext)
	}
}

// save writes a finished run to path.
// HDF5 files hold a single run, SQLite files get a new run named name.
func save(ctx context.Context, path, name string, p fishswarm.Parameters, traj *fishswarm.Trajectory) (err error) {
	f, err := format(path)
	if err != nil {
		return err
	}
	if f == formatHDF5 {
		return hdf5.Save(path, traj, p)
	}

	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = s.SaveRun(ctx, name, p, traj)
	return err
}

// openStore opens an existing SQLite file. store.Open alone would create it.
func openStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return store.Open(path)
}

// load reads back a run saved by save. For SQLite files, id selects the
// run and 0 means the latest one. HDF5 files that do not record their
// geometry fall back on the geometry of conf.
func load(ctx context.Context, path string, id int64, conf *config.Config) (*fishswarm.Trajectory, *fishswarm.Environment, error) {
	f, err := format(path)
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil, err
	}
	if f == formatHDF5 {
		traj, env, err := hdf5.LoadTrajectory(path)
		if err != nil {
			return nil, nil, err
		}
		if env == nil {
			p, err := conf.Parameters()
			if err != nil {
				return nil, nil, err
			}
			env = fishswarm.NewEnvironment(&p)
		}
		return traj, env, nil
	}

	s, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer s.Close()
	if id == 0 {
		runs, err := s.Runs(ctx)
		if err != nil {
			return nil, nil, err
		}
		if len(runs) == 0 {
			return nil, nil, fmt.Errorf("%s: %w", path, store.ErrNotFound)
		}
		id = runs[len(runs)-1].ID
	}
	run, traj, err := s.LoadRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return traj, fishswarm.NewEnvironment(&run.Params), nil
}
