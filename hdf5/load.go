package hdf5

import (
	"fmt"
	"reflect"

	"gonum.org/v1/hdf5"

	"github.com/PrincetonUniversity/fishswarm"
)

// A Loader sequentially loads frames from an HDF5 dataset of particle records.
type Loader struct {
	i   uint                   // index of current frame
	n   uint                   // total number of frames
	dt  float64                // time step, zero if the file does not record it
	env *fishswarm.Environment // geometry of the run, nil if the file does not record it

	data []record // data buffer

	file   *hdf5.File
	dset   *hdf5.Dataset
	fspace *hdf5.Dataspace
	mspace *hdf5.Dataspace
}

// NewLoader opens a dataset in an HDF5 file and returns an initialized loader.
// The dataset is usually "particles", as written by Save.
func NewLoader(filepath, dataset string) (*Loader, error) {
	l := new(Loader)
	var err error
	l.file, err = hdf5.OpenFile(filepath, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("hdf5: %w", err)
	}
	l.dset, err = l.file.OpenDataset(dataset)
	if err != nil {
		checkClose(&err, l.file)
		return nil, fmt.Errorf("hdf5: %w", err)
	}
	l.fspace = l.dset.Space()
	dims, _, err := l.fspace.SimpleExtentDims()
	if err != nil {
		l.closeAll(&err)
		return nil, err
	}
	if len(dims) != 2 {
		l.closeAll(&err)
		return nil, fmt.Errorf("hdf5: loader: expected 2 dimensions, got %d", len(dims))
	}
	l.n = dims[0]
	l.data = make([]record, dims[1])

	if dims[1] > 0 {
		l.mspace, err = hdf5.CreateSimpleDataspace(dims[1:], nil)
		if err != nil {
			l.closeAll(&err)
			return nil, err
		}
	}
	l.dt, l.env = readConfig(l.file)
	return l, nil
}

// readConfig reads back the geometry written by saveConfig.
// env is nil if the file does not record it.
func readConfig(file *hdf5.File) (dt float64, env *fishswarm.Environment) {
	dset, err := file.OpenDataset("config")
	if err != nil {
		return 0, nil
	}
	defer dset.Close()

	var p fishswarm.Parameters
	var boundary int
	if readAttr(dset, "Dt", &p.Dt) != nil {
		return 0, nil
	}
	for name, ptr := range map[string]any{
		"Dims":        &p.Dims,
		"Extent":      &p.Extent,
		"Boundary":    &boundary,
		"MinDistance": &p.MinDistance,
	} {
		if readAttr(dset, name, ptr) != nil {
			return p.Dt, nil
		}
	}
	p.Boundary = fishswarm.BoundaryMode(boundary)
	if (p.Dims != 2 && p.Dims != 3) || !(p.Extent > 0) {
		return p.Dt, nil
	}
	return p.Dt, fishswarm.NewEnvironment(&p)
}

// readAttr reads a scalar attribute into ptr.
func readAttr(dset *hdf5.Dataset, name string, ptr any) (err error) {
	attr, err := dset.OpenAttribute(name)
	if err != nil {
		return err
	}
	defer checkClose(&err, attr)

	dtype, err := hdf5.NewDatatypeFromValue(reflect.ValueOf(ptr).Elem().Interface())
	if err != nil {
		return err
	}
	defer checkClose(&err, dtype)
	return attr.Read(ptr, dtype)
}

// Environment returns the geometry of the saved run,
// or nil if the file does not record it.
func (l *Loader) Environment() *fishswarm.Environment {
	return l.env
}

// Len returns the number of frames in the dataset.
func (l *Loader) Len() int {
	return int(l.n)
}

// Load loads the next frame available
// and cycles when everything has already been loaded.
func (l *Loader) Load() (fishswarm.Frame, error) {
	if l.n == 0 {
		return fishswarm.Frame{}, fmt.Errorf("hdf5: loader: no frames")
	}
	k := l.i
	l.i = (l.i + 1) % l.n

	f := fishswarm.Frame{
		Step:      int(k),
		Time:      float64(k) * l.dt,
		Particles: make([]fishswarm.Particle, len(l.data)),
	}
	if len(l.data) == 0 {
		return f, nil
	}

	start := []uint{k, 0}
	count := []uint{1, uint(len(l.data))}
	if err := l.fspace.SelectHyperslab(start, nil, count, nil); err != nil {
		return fishswarm.Frame{}, err
	}
	if err := l.dset.ReadSubset(&l.data, l.mspace, l.fspace); err != nil {
		return fishswarm.Frame{}, fmt.Errorf("hdf5: frame %d: %w", k, err)
	}
	for i, r := range l.data {
		f.Particles[i] = fishswarm.Particle{ID: i, Pos: r.Pos, Vel: r.Vel, Acc: r.Acc}
	}
	return f, nil
}

// Close releases the file and dataset.
func (l *Loader) Close() (err error) {
	l.closeAll(&err)
	return err
}

func (l *Loader) closeAll(err *error) {
	if l.mspace != nil {
		checkClose(err, l.mspace)
	}
	checkClose(err, l.fspace)
	checkClose(err, l.dset)
	checkClose(err, l.file)
}

// LoadTrajectory reads a whole file written by Save, along with the
// geometry of the run if the file records it.
func LoadTrajectory(path string) (traj *fishswarm.Trajectory, env *fishswarm.Environment, err error) {
	l, err := NewLoader(path, "particles")
	if err != nil {
		return nil, nil, err
	}
	defer checkClose(&err, l)

	traj = fishswarm.NewTrajectory()
	for range l.Len() {
		f, err := l.Load()
		if err != nil {
			return nil, nil, err
		}
		traj.Append(f)
	}
	return traj, l.Environment(), nil
}
