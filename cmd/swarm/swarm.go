// Command swarm runs fishswarm: rule-based schooling simulations.
//
// # Usage
//
//	swarm run [config_file]         run a simulation, save it with -o
//	swarm view [config_file]        run a simulation in an OpenGL window
//	swarm replay <file>             play back a saved run
//	swarm stats <file>              print order parameters of a saved run
//	swarm runs <file.db>            list the runs of a SQLite file
//	swarm version
//
// # Config file
//
// The config file is written in TOML or YAML, chosen by its extension.
// Only the parameters that differ from the defaults need to be listed.
// Unknown keys are reported as errors.
//
// # Output
//
// Runs are saved to HDF5 when the output path ends in .h5 or .hdf5
// and to SQLite when it ends in .db or .sqlite. A SQLite file may
// hold many runs.
//
// # Interactive mode
//
// In the view and replay commands, the simulation can be paused/resumed
// with space. While in pause, pressing right arrow will perform a single step.
// Scrolling zooms around the cursor and R resets the view.
// Pressing Esc or closing the window will quit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func init() {
	// Most OpenGL functions have to run from the main thread.
	// This is needed to arrange that main() runs on main thread.
	// See https://github.com/golang/go/wiki/LockOSThread for more info.
	runtime.LockOSThread()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "swarm",
		Short: "Rule-based schooling and flocking simulations",
		Long: `swarm runs particle simulations where every individual steers according
to separation, alignment, cohesion and boundary avoidance rules.

Runs can be watched live, saved to HDF5 or SQLite, replayed and analyzed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML or YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides the config)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newRunCmd(),
		newViewCmd(),
		newReplayCmd(),
		newStatsCmd(),
		newRunsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Fatal prints an error on the standard error and exits with a non-zero status.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}
