package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/PrincetonUniversity/fishswarm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	p, err := Default().Parameters()
	if err != nil {
		t.Fatal(err)
	}
	if p != fishswarm.DefaultParameters() {
		t.Errorf("default config does not map to the default parameters:\n%+v\n%+v", p, fishswarm.DefaultParameters())
	}
	if err := p.Validate(); err != nil {
		t.Error(err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "run.toml", `
output = "out/run.h5"
particle_count = 300
boundary_mode = "reflective"
dimensions = 3
random_seed = 42

[cohesion]
radius = 10
weight = 0.8
`},
		{"yaml", "run.yaml", `
output: out/run.h5
particle_count: 300
boundary_mode: reflective
dimensions: 3
random_seed: 42
cohesion:
  radius: 10
  weight: 0.8
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			conf, err := Load(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatal(err)
			}
			if conf.Output != "out/run.h5" || conf.ParticleCount != 300 || conf.RandomSeed != 42 {
				t.Errorf("got %+v", conf)
			}
			// unset keys keep their defaults
			if !conf.Cohesion.Enabled || conf.Cohesion.MaxContribution != Default().Cohesion.MaxContribution {
				t.Errorf("cohesion = %+v, want defaults for unset keys", conf.Cohesion)
			}

			p, err := conf.Parameters()
			if err != nil {
				t.Fatal(err)
			}
			if p.Boundary != fishswarm.Reflective || p.Dims != 3 || p.Cohesion.Radius != 10 || p.Cohesion.Weight != 0.8 {
				t.Errorf("parameters = %+v", p)
			}
		})
	}
}

func TestLoadEmptyYAML(t *testing.T) {
	t.Parallel()
	conf, err := Load(writeFile(t, "empty.yml", ""))
	if err != nil {
		t.Fatal(err)
	}
	if *conf != *Default() {
		t.Errorf("empty file changed the defaults: %+v", conf)
	}
}

func TestLoadUnknownKeys(t *testing.T) {
	t.Parallel()
	for name, content := range map[string]string{
		"bad.toml": "particle_count = 3\nswarm_size = 4\n",
		"bad.yaml": "particle_count: 3\nswarm_size: 4\n",
	} {
		_, err := Load(writeFile(t, name, content))
		if !errors.Is(err, ErrUnknownKey) {
			t.Errorf("%s: err = %v, want ErrUnknownKey", name, err)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	if _, err := Load(writeFile(t, "run.json", "{}")); err == nil {
		t.Error("json config accepted")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := Load(writeFile(t, "syntax.toml", "particle_count = \n")); err == nil {
		t.Error("malformed toml accepted")
	}
	if _, err := Load(writeFile(t, "type.yaml", "particle_count: many\n")); err == nil || errors.Is(err, ErrUnknownKey) {
		t.Errorf("type mismatch: err = %v", err)
	}
}

func TestParametersErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		field  string
		modify func(c *Config)
	}{
		{"boundary_mode", func(c *Config) { c.BoundaryMode = "torus" }},
		{"layout", func(c *Config) { c.Layout = "spiral" }},
		{"neighbors", func(c *Config) { c.Neighbors = "kdtree" }},
	}
	for _, tt := range tests {
		c := Default()
		tt.modify(c)
		_, err := c.Parameters()
		var cerr *fishswarm.ConfigError
		if !errors.As(err, &cerr) || cerr.Field != tt.field {
			t.Errorf("err = %v, want a ConfigError on %s", err, tt.field)
		}
	}
}
