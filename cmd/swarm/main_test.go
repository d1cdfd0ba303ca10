package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PrincetonUniversity/fishswarm"
	"github.com/PrincetonUniversity/fishswarm/config"
	"github.com/PrincetonUniversity/fishswarm/store"
)

const smallConfig = `
log_level = "debug"
particle_count = 20
domain_extent = 30
total_steps = 10
`

// summaryRow mirrors the JSON rows printed by run and stats.
type summaryRow struct {
	Step         int      `json:"step"`
	Polarization float64  `json:"polarization"`
	Groups       int      `json:"groups"`
	MeanNearest  *float64 `json:"mean_nearest"`
}

// execute runs the root command with args and returns what it printed on
// the standard output and error.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd := newRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func decodeSummaries(t *testing.T, s string) []summaryRow {
	t.Helper()
	var rows []summaryRow
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		t.Fatalf("invalid JSON output %q: %v", s, err)
	}
	return rows
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("version output %q does not contain %q", out, version)
	}

	out, _, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if v["version"] != version {
		t.Errorf("version = %q, want %q", v["version"], version)
	}
}

func TestRunSQLite(t *testing.T) {
	conf := writeConfig(t, "school.toml", smallConfig)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, logs, err := execute(t, "run", conf, "-o", db, "--name", "first", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	rows := decodeSummaries(t, out)
	if len(rows) != 1 || rows[0].Step != 10 {
		t.Fatalf("run summary = %+v, want the single final step 10", rows)
	}
	for _, msg := range []string{"progress", "step=10", "trajectory saved"} {
		if !strings.Contains(logs, msg) {
			t.Errorf("missing %q in logs %q", msg, logs)
		}
	}

	// second run, named after the config file
	if _, _, err := execute(t, "run", conf, "-o", db, "--seed", "7", "--steps", "4"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	out, _, err = execute(t, "runs", db, "--json")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var runs []struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Particles int    `json:"particles"`
		Frames    int    `json:"frames"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Name != "first" || runs[0].Particles != 20 || runs[0].Frames != 11 {
		t.Errorf("first run = %+v", runs[0])
	}
	if runs[1].Name != "school" || runs[1].Frames != 5 {
		t.Errorf("second run = %+v", runs[1])
	}

	// the latest run by default
	out, _, err = execute(t, "stats", db, "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if rows := decodeSummaries(t, out); len(rows) != 5 {
		t.Errorf("stats of latest run gave %d rows, want 5", len(rows))
	}

	out, _, err = execute(t, "stats", db, "--run", "1", "--every", "5", "--json")
	if err != nil {
		t.Fatalf("stats --run 1: %v", err)
	}
	rows = decodeSummaries(t, out)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i, r := range rows {
		if r.Step != 5*i {
			t.Errorf("row %d is step %d, want %d", i, r.Step, 5*i)
		}
		if r.Groups < 1 || r.MeanNearest == nil {
			t.Errorf("row %d = %+v", i, r)
		}
	}

	out, _, err = execute(t, "stats", db, "--run", "1")
	if err != nil {
		t.Fatalf("stats table: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 12 || !strings.HasPrefix(lines[0], "STEP") {
		t.Errorf("unexpected table:\n%s", out)
	}

	if _, _, err := execute(t, "stats", db, "--run", "99"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("stats of a missing run = %v, want ErrNotFound", err)
	}
}

func TestRunHDF5(t *testing.T) {
	conf := writeConfig(t, "school.yaml", `
particle_count: 12
dimensions: 3
domain_extent: 20
boundary_mode: reflective
total_steps: 6
`)
	h5 := filepath.Join(t.TempDir(), "out", "school.h5")

	if _, _, err := execute(t, "run", conf, "-o", h5); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err := execute(t, "stats", h5, "--json", "--every", "2")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	rows := decodeSummaries(t, out)
	if len(rows) != 4 || rows[3].Step != 6 {
		t.Errorf("stats = %+v, want steps 0, 2, 4 and 6", rows)
	}
}

func TestRunWithoutOutput(t *testing.T) {
	out, _, err := execute(t, "run", "--steps", "3", "--log-level", "info")
	if err != nil {
		t.Fatalf("run with defaults: %v", err)
	}
	if !strings.HasPrefix(out, "STEP") {
		t.Errorf("expected a summary table, got %q", out)
	}
}

func TestRunErrors(t *testing.T) {
	good := writeConfig(t, "good.toml", smallConfig)

	t.Run("bad extension", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.csv")
		if _, _, err := execute(t, "run", good, "-o", out); err == nil {
			t.Error("csv output accepted")
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("output file created for an unsupported format")
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		conf := writeConfig(t, "typo.toml", "particle_cuont = 10\n")
		if _, _, err := execute(t, "run", conf); !errors.Is(err, config.ErrUnknownKey) {
			t.Errorf("err = %v, want ErrUnknownKey", err)
		}
	})

	t.Run("invalid parameters", func(t *testing.T) {
		conf := writeConfig(t, "invalid.toml", "dt = -1\n")
		if _, _, err := execute(t, "run", conf); !errors.Is(err, fishswarm.ErrConfig) {
			t.Errorf("err = %v, want ErrConfig", err)
		}
	})

	t.Run("missing config", func(t *testing.T) {
		if _, _, err := execute(t, "run", filepath.Join(t.TempDir(), "none.toml")); err == nil {
			t.Error("missing config accepted")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nowhere")
		for _, args := range [][]string{
			{"runs", filepath.Join(dir, "runs.db")},
			{"stats", filepath.Join(dir, "runs.db")},
			{"stats", filepath.Join(dir, "school.h5")},
			{"replay", filepath.Join(dir, "runs.db")},
		} {
			if _, _, err := execute(t, args...); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("%v: err = %v, want ErrNotExist", args, err)
			}
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("reading a missing file created %s", dir)
		}
	})

	t.Run("runs of an hdf5 file", func(t *testing.T) {
		if _, _, err := execute(t, "runs", "school.h5"); err == nil {
			t.Error("runs accepted an HDF5 path")
		}
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.h5", formatHDF5},
		{"dir/a.HDF5", formatHDF5},
		{"a.db", formatSQLite},
		{"a.sqlite", formatSQLite},
		{"a.sqlite3", formatSQLite},
		{"a.csv", ""},
		{"noext", ""},
	}
	for _, tt := range tests {
		got, err := format(tt.path)
		if got != tt.want {
			t.Errorf("format(%q) = %q, want %q", tt.path, got, tt.want)
		}
		if (err != nil) != (tt.want == "") {
			t.Errorf("format(%q) error = %v", tt.path, err)
		}
	}
}
