// Package config reads simulation parameters from TOML or YAML files.
//
// A config file only needs to list the parameters that differ from the
// defaults. Rule settings live in their own tables:
//
//	particle_count = 300
//	boundary_mode = "reflective"
//
//	[cohesion]
//	radius = 10
//	weight = 0.8
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/PrincetonUniversity/fishswarm"
)

// ErrUnknownKey is wrapped when a config file sets a parameter that does not exist.
var ErrUnknownKey = errors.New("config: unknown key")

// Rule holds the settings of one steering rule.
type Rule struct {
	Enabled         bool    `toml:"enabled" yaml:"enabled"`
	Radius          float64 `toml:"radius" yaml:"radius"`
	Weight          float64 `toml:"weight" yaml:"weight"`
	MaxContribution float64 `toml:"max_contribution" yaml:"max_contribution"`
}

// Config holds the various parameters required for running a simulation.
type Config struct {
	// Output is either a path to an HDF5 (.h5) or SQLite (.db) file,
	// or the empty string to only print a summary.
	Output   string `toml:"output" yaml:"output"`
	LogLevel string `toml:"log_level" yaml:"log_level"` // info, debug or trace

	ParticleCount int     `toml:"particle_count" yaml:"particle_count"`
	Dimensions    int     `toml:"dimensions" yaml:"dimensions"`
	DomainExtent  float64 `toml:"domain_extent" yaml:"domain_extent"`
	BoundaryMode  string  `toml:"boundary_mode" yaml:"boundary_mode"` // soft, periodic, reflective
	Dt            float64 `toml:"dt" yaml:"dt"`
	TotalSteps    int     `toml:"total_steps" yaml:"total_steps"`

	Separation Rule `toml:"separation" yaml:"separation"`
	Alignment  Rule `toml:"alignment" yaml:"alignment"`
	Cohesion   Rule `toml:"cohesion" yaml:"cohesion"`
	Avoidance  Rule `toml:"avoidance" yaml:"avoidance"`

	MaxSpeed    float64 `toml:"max_speed" yaml:"max_speed"`
	MaxForce    float64 `toml:"max_force" yaml:"max_force"`
	MinDistance float64 `toml:"min_distance" yaml:"min_distance"`

	InitialSpeed float64 `toml:"initial_speed" yaml:"initial_speed"`
	Layout       string  `toml:"layout" yaml:"layout"` // uniform, lattice
	WeightJitter float64 `toml:"weight_jitter" yaml:"weight_jitter"`
	RandomSeed   uint64  `toml:"random_seed" yaml:"random_seed"`

	Neighbors string `toml:"neighbors" yaml:"neighbors"` // grid, brute
	Workers   int    `toml:"workers" yaml:"workers"`

	// Extra computations parameters
	GroupDistance float64 `toml:"group_distance" yaml:"group_distance"` // linkage distance of groups
}

// Default returns the default parameters.
func Default() *Config {
	p := fishswarm.DefaultParameters()
	return &Config{
		LogLevel:      "info",
		ParticleCount: p.Particles,
		Dimensions:    p.Dims,
		DomainExtent:  p.Extent,
		BoundaryMode:  p.Boundary.String(),
		Dt:            p.Dt,
		TotalSteps:    p.TotalSteps,
		Separation:    rule(p.Separation),
		Alignment:     rule(p.Alignment),
		Cohesion:      rule(p.Cohesion),
		Avoidance:     rule(p.Avoidance),
		MaxSpeed:      p.MaxSpeed,
		MaxForce:      p.MaxForce,
		MinDistance:   p.MinDistance,
		InitialSpeed:  p.InitialSpeed,
		Layout:        p.Layout.String(),
		WeightJitter:  p.WeightJitter,
		RandomSeed:    p.Seed,
		Neighbors:     p.Neighbors.String(),
		Workers:       p.Workers,
		GroupDistance: 4,
	}
}

func rule(r fishswarm.RuleParams) Rule {
	return Rule{Enabled: r.Enabled, Radius: r.Radius, Weight: r.Weight, MaxContribution: r.MaxContribution}
}

func (r Rule) params() fishswarm.RuleParams {
	return fishswarm.RuleParams{Enabled: r.Enabled, Radius: r.Radius, Weight: r.Weight, MaxContribution: r.MaxContribution}
}

// Load parses the config file whose path is provided.
// The format is chosen from the extension: .toml, .yaml or .yml.
// The file overwrites the default parameters.
func Load(path string) (*Config, error) {
	conf := Default()
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = decodeTOML(path, conf)
	case ".yaml", ".yml":
		err = decodeYAML(path, conf)
	default:
		return nil, fmt.Errorf("config: unsupported file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return conf, nil
}

func decodeTOML(path string, conf *Config) error {
	md, err := toml.DecodeFile(path, conf)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w in %s: %s", ErrUnknownKey, path, strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(path string, conf *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(conf); err != nil && !errors.Is(err, io.EOF) {
		var terr *yaml.TypeError
		if errors.As(err, &terr) && slices.ContainsFunc(terr.Errors, unknownField) {
			return fmt.Errorf("%w in %s: %s", ErrUnknownKey, path, strings.Join(terr.Errors, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// unknownField matches the message yaml.v3 reports for KnownFields violations.
func unknownField(msg string) bool {
	return strings.Contains(msg, "not found in type")
}

// Parameters converts the config to simulation parameters.
// The result still has to be validated, which fishswarm.New does.
func (c *Config) Parameters() (fishswarm.Parameters, error) {
	boundary, err := fishswarm.ParseBoundaryMode(c.BoundaryMode)
	if err != nil {
		return fishswarm.Parameters{}, err
	}
	layout, err := fishswarm.ParseLayout(c.Layout)
	if err != nil {
		return fishswarm.Parameters{}, err
	}
	neighbors, err := fishswarm.ParseIndexStrategy(c.Neighbors)
	if err != nil {
		return fishswarm.Parameters{}, err
	}
	return fishswarm.Parameters{
		Particles:    c.ParticleCount,
		Dims:         c.Dimensions,
		Extent:       c.DomainExtent,
		Boundary:     boundary,
		Dt:           c.Dt,
		TotalSteps:   c.TotalSteps,
		Separation:   c.Separation.params(),
		Alignment:    c.Alignment.params(),
		Cohesion:     c.Cohesion.params(),
		Avoidance:    c.Avoidance.params(),
		MaxSpeed:     c.MaxSpeed,
		MaxForce:     c.MaxForce,
		MinDistance:  c.MinDistance,
		InitialSpeed: c.InitialSpeed,
		Layout:       layout,
		WeightJitter: c.WeightJitter,
		Seed:         c.RandomSeed,
		Neighbors:    neighbors,
		Workers:      c.Workers,
	}, nil
}
