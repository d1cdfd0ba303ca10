package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PrincetonUniversity/fishswarm"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [config_file]",
		Short: "Run a simulation and save it",
		Long: `Run a simulation to completion.

The trajectory is saved to the output file, HDF5 (.h5) or SQLite (.db),
and the order parameters of the final frame are printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			log := newLogger(cmd, conf)
			if conf.Output != "" {
				// fail before simulating
				if _, err := format(conf.Output); err != nil {
					return err
				}
			}

			p, err := conf.Parameters()
			if err != nil {
				return err
			}
			hook := progress(cmd.Context(), log, p, conf.GroupDistance)
			sim, err := setup(conf, log, fishswarm.WithStepHook(hook))
			if err != nil {
				return err
			}
			if err := sim.Run(cmd.Context()); err != nil {
				return err
			}

			if conf.Output != "" {
				name, _ := cmd.Flags().GetString("name")
				if name == "" && len(args) > 0 {
					name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				}
				if err := save(cmd.Context(), conf.Output, name, sim.Parameters(), sim.Trajectory()); err != nil {
					return err
				}
				log.Info("trajectory saved", "path", conf.Output, "frames", sim.Trajectory().Len())
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			last := fishswarm.Summarize(sim.Current(), sim.Environment(), conf.GroupDistance)
			return printSummaries(cmd.OutOrStdout(), []fishswarm.Summary{last}, jsonOut)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file (.h5 or .db), overrides the config")
	cmd.Flags().Int("steps", 0, "Number of steps, overrides the config")
	cmd.Flags().Uint64("seed", 0, "Random seed, overrides the config")
	cmd.Flags().String("name", "", "Name of the run in a SQLite output")
	return cmd
}

// progress returns a step hook reporting progress every tenth of the run.
// Order parameters of every step are logged at trace level.
func progress(ctx context.Context, log *slog.Logger, p fishswarm.Parameters, groupDist float64) func(fishswarm.Frame) {
	every := max(p.TotalSteps/10, 1)
	trace := log.Enabled(ctx, LevelTrace)
	env := fishswarm.NewEnvironment(&p)
	return func(f fishswarm.Frame) {
		if f.Step%every == 0 {
			log.Info("progress", "step", f.Step, "percent", 100*f.Step/p.TotalSteps)
		}
		if trace {
			s := fishswarm.Summarize(f, env, groupDist)
			log.Log(ctx, LevelTrace, "order parameters",
				"step", s.Step,
				"polarization", s.Polarization,
				"groups", s.Groups,
				"mean_speed", s.MeanSpeed)
		}
	}
}
