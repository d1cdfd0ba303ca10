// Package hdf5 stores fishswarm trajectories in HDF5 files and reads them back.
//
// A file written by Save contains one dataset per recorded quantity, each
// with the frame index as first dimension, plus an empty "config" dataset
// whose attributes hold the parameters of the run.
package hdf5

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"gonum.org/v1/hdf5"

	"github.com/PrincetonUniversity/fishswarm"
)

// A Dataset stipulates how to generate data and where to store them in the HDF5 file.
type Dataset struct {
	// Name the name of the dataset in the HDF5 file.
	Name string

	// Val is a value of the same concrete type as the underlying type of the data.
	Val any

	// Dims are the dimensions of the data for a single frame.
	Dims []int

	// Data is a function that produces the data of a frame
	// as a pointer to a slice of row-major concrete values,
	// or a pointer to a single value when Dims is empty.
	Data func(f fishswarm.Frame) any

	dset   *hdf5.Dataset
	fspace *hdf5.Dataspace
	mspace *hdf5.Dataspace
}

// Config holds the parameters of the HDF5 driver.
type Config struct {
	Output   string               // path of output file
	Params   fishswarm.Parameters // saved as attributes of the "config" dataset
	Datasets []*Dataset           // list of datasets
}

// A record is what is recorded in the HDF5 file for each particle at each frame.
// This structure is mapped to a compound datatype in HDF5 so member names are important.
type record struct {
	Pos fishswarm.Vec // position
	Vel fishswarm.Vec // velocity
	Acc fishswarm.Vec // steering acceleration of the last step
}

// DefaultDatasets returns the datasets written by Save for n particles:
// "particles" of shape [T, n] holding {Pos, Vel, Acc} records,
// "time" and "polarization" of shape [T].
func DefaultDatasets(n int) []*Dataset {
	return []*Dataset{
		{
			Name: "particles",
			Val:  record{},
			Dims: []int{n},
			Data: func(f fishswarm.Frame) any {
				rs := make([]record, len(f.Particles))
				for i, p := range f.Particles {
					rs[i] = record{Pos: p.Pos, Vel: p.Vel, Acc: p.Acc}
				}
				return &rs
			},
		},
		{
			Name: "time",
			Val:  0.0,
			Data: func(f fishswarm.Frame) any { return &f.Time },
		},
		{
			Name: "polarization",
			Val:  0.0,
			Data: func(f fishswarm.Frame) any {
				v := fishswarm.Polarization(f)
				return &v
			},
		},
	}
}

// Save writes every frame of traj to an HDF5 file at path,
// along with the parameters p of the run.
func Save(path string, traj *fishswarm.Trajectory, p fishswarm.Parameters) error {
	return Run(traj, &Config{
		Output:   path,
		Params:   p,
		Datasets: DefaultDatasets(p.Particles),
	})
}

// Run writes the frames of traj to the datasets described by conf.
func Run(traj *fishswarm.Trajectory, conf *Config) (err error) {
	if err := os.MkdirAll(filepath.Dir(conf.Output), 0755); err != nil {
		return err
	}

	file, err := hdf5.CreateFile(conf.Output, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("hdf5: %w", err)
	}
	defer checkClose(&err, file)

	steps := traj.Len()
	if err := saveConfig(file, conf, steps); err != nil {
		return err
	}

	for _, d := range conf.Datasets {
		if err := d.init(file, steps); err != nil {
			return fmt.Errorf("hdf5: dataset %s: %w", d.Name, err)
		}
		defer checkClose(&err, d)
	}

	for k, f := range traj.Frames() {
		if k >= steps {
			break
		}
		for _, d := range conf.Datasets {
			if d.empty() {
				continue
			}
			start, count := d.slab(uint(k))
			if err := d.fspace.SelectHyperslab(start, nil, count, nil); err != nil {
				return err
			}
			if err := d.dset.WriteSubset(d.Data(f), d.mspace, d.fspace); err != nil {
				return fmt.Errorf("hdf5: dataset %s frame %d: %w", d.Name, k, err)
			}
		}
	}
	return nil
}

// saveConfig creates a "config" dataset with a null dataspace whose attributes
// reflect the whole configuration plus some other appropriate metadata.
func saveConfig(file *hdf5.File, conf *Config, frames int) (err error) {
	null, err := hdf5.CreateDataspace(hdf5.S_NULL)
	if err != nil {
		return err
	}
	defer checkClose(&err, null)

	anytype, err := hdf5.NewDatatypeFromValue(0)
	if err != nil {
		return err
	}
	defer checkClose(&err, anytype)

	dset, err := file.CreateDataset("config", anytype, null)
	if err != nil {
		return err
	}
	defer checkClose(&err, dset)

	if err := writeAttr(dset, "Time", time.Now().String()); err != nil {
		return err
	}
	if err := writeAttr(dset, "Frames", frames); err != nil {
		return err
	}
	return writeAttrs(dset, "", reflect.ValueOf(conf.Params))
}

var stringer = reflect.TypeFor[fmt.Stringer]()

// writeAttrs writes every field of the struct v as an attribute.
// Nested structs are flattened with dotted names and booleans are
// written as 0 or 1.
func writeAttrs(dset *hdf5.Dataset, prefix string, v reflect.Value) error {
	for i := 0; i < v.NumField(); i++ {
		name := prefix + v.Type().Field(i).Name
		f := v.Field(i)
		var val any
		switch {
		case f.Kind() == reflect.Struct:
			if err := writeAttrs(dset, name+".", f); err != nil {
				return err
			}
			continue
		case f.Kind() == reflect.Bool:
			val = 0
			if f.Bool() {
				val = 1
			}
		case f.Kind() == reflect.Int && f.Type().Implements(stringer):
			// enumerations are written by value and by name
			if err := writeAttr(dset, name+"Name", f.Interface().(fmt.Stringer).String()); err != nil {
				return fmt.Errorf("hdf5: attribute %s: %w", name, err)
			}
			val = int(f.Int())
		default:
			val = f.Interface()
		}
		if err := writeAttr(dset, name, val); err != nil {
			return fmt.Errorf("hdf5: attribute %s: %w", name, err)
		}
	}
	return nil
}

// writeAttr writes a single scalar attribute.
func writeAttr(dset *hdf5.Dataset, name string, val any) (err error) {
	scalar, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return err
	}
	defer checkClose(&err, scalar)

	dtype, err := hdf5.NewDatatypeFromValue(val)
	if err != nil {
		return err
	}
	defer checkClose(&err, dtype)

	attr, err := dset.CreateAttribute(name, dtype, scalar)
	if err != nil {
		return err
	}
	defer checkClose(&err, attr)

	ptr := reflect.New(reflect.TypeOf(val))
	ptr.Elem().Set(reflect.ValueOf(val))
	return attr.Write(ptr.Interface(), dtype)
}

// init creates the dataset and its dataspaces for the given number of frames.
func (d *Dataset) init(file *hdf5.File, steps int) (err error) {
	dtype, err := hdf5.NewDatatypeFromValue(d.Val)
	if err != nil {
		return err
	}
	defer checkClose(&err, dtype)

	udims := make([]uint, len(d.Dims)+1)
	udims[0] = uint(steps)
	for i, n := range d.Dims {
		udims[i+1] = uint(n)
	}

	d.fspace, err = hdf5.CreateSimpleDataspace(udims, nil)
	if err != nil {
		return err
	}

	if len(d.Dims) == 0 {
		d.mspace, err = hdf5.CreateDataspace(hdf5.S_SCALAR)
	} else {
		d.mspace, err = hdf5.CreateSimpleDataspace(udims[1:], nil)
	}
	if err != nil {
		checkClose(&err, d.fspace)
		return err
	}

	d.dset, err = file.CreateDataset(d.Name, dtype, d.fspace)
	if err != nil {
		checkClose(&err, d.fspace)
		checkClose(&err, d.mspace)
	}
	return err
}

// slab returns the hyperslab holding frame k.
func (d *Dataset) slab(k uint) (start, count []uint) {
	start = make([]uint, len(d.Dims)+1)
	count = make([]uint, len(d.Dims)+1)
	start[0], count[0] = k, 1
	for i, n := range d.Dims {
		count[i+1] = uint(n)
	}
	return start, count
}

// empty reports whether a frame of d holds no value, as for an empty swarm.
func (d *Dataset) empty() bool {
	for _, n := range d.Dims {
		if n == 0 {
			return true
		}
	}
	return false
}

// Close closes the HDF5 dataset and Dataspaces.
func (d *Dataset) Close() error {
	if err := d.dset.Close(); err != nil {
		return err
	}
	if err := d.mspace.Close(); err != nil {
		return err
	}
	if err := d.fspace.Close(); err != nil {
		return err
	}
	return nil
}

// checkClose checks for errors in deferred calls.
func checkClose(err *error, c io.Closer) {
	if cerr := c.Close(); *err == nil {
		*err = cerr
	}
}
