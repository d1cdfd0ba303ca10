package main

import (
	"errors"
	"io"
	"iter"

	"github.com/spf13/cobra"

	"github.com/PrincetonUniversity/fishswarm"
	"github.com/PrincetonUniversity/fishswarm/opengl"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [config_file]",
		Short: "Run a simulation in an OpenGL window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			sim, err := setup(conf, newLogger(cmd, conf))
			if err != nil {
				return err
			}
			manual, _ := cmd.Flags().GetBool("manual")

			started := false
			next := func() (fishswarm.Frame, error) {
				if !started {
					started = true
					return sim.Current(), nil
				}
				if err := sim.Step(); errors.Is(err, fishswarm.ErrCompleted) {
					return fishswarm.Frame{}, io.EOF
				} else if err != nil {
					return fishswarm.Frame{}, err
				}
				return sim.Current(), nil
			}
			return opengl.Run(viewerConfig(sim.Parameters(), next, manual))
		},
	}
	cmd.Flags().Int("steps", 0, "Number of steps, overrides the config")
	cmd.Flags().Uint64("seed", 0, "Random seed, overrides the config")
	cmd.Flags().Bool("manual", false, "Only step with the right arrow key")
	return cmd
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Play back a saved run in an OpenGL window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetInt64("run")
			every, _ := cmd.Flags().GetInt("every")
			loop, _ := cmd.Flags().GetBool("loop")
			manual, _ := cmd.Flags().GetBool("manual")

			traj, env, err := load(cmd.Context(), args[0], id, conf)
			if err != nil {
				return err
			}
			if traj.Len() == 0 {
				return errors.New("no frames to replay")
			}
			first := traj.Frame(0)
			p := fishswarm.Parameters{
				Particles: first.Len(),
				Dims:      env.Dims,
				Extent:    env.Extent,
				Boundary:  env.Boundary,
				MaxSpeed:  maxSpeed(traj),
			}

			pull, stop := iter.Pull2(traj.Every(every))
			defer func() { stop() }()
			next := func() (fishswarm.Frame, error) {
				_, f, ok := pull()
				if !ok && loop {
					// frames are restartable, start over
					stop()
					pull, stop = iter.Pull2(traj.Every(every))
					_, f, ok = pull()
				}
				if !ok {
					return fishswarm.Frame{}, io.EOF
				}
				return f, nil
			}
			return opengl.Run(viewerConfig(p, next, manual))
		},
	}
	cmd.Flags().Int64("run", 0, "Run ID in a SQLite file (default latest)")
	cmd.Flags().Int("every", 1, "Only show every n-th frame")
	cmd.Flags().Bool("loop", false, "Start over at the end of the run")
	cmd.Flags().Bool("manual", false, "Only step with the right arrow key")
	return cmd
}

// maxSpeed returns the largest speed recorded in traj.
func maxSpeed(traj *fishswarm.Trajectory) float64 {
	var v float64
	for _, f := range traj.Frames() {
		for _, p := range f.Particles {
			v = max(v, p.Speed())
		}
	}
	return v
}

// viewerConfig frames the whole domain, with a margin for soft boundaries
// which particles may cross.
func viewerConfig(p fishswarm.Parameters, next func() (fishswarm.Frame, error), manual bool) *opengl.Config {
	margin := 0.0
	if p.Boundary == fishswarm.Soft {
		margin = 0.1 * p.Extent
	}
	return &opengl.Config{
		MaxSwarmSize: p.Particles,
		Next:         next,
		ForcePause:   manual,
		Size:         p.Extent / 80,
		MaxSpeed:     p.MaxSpeed,
		Extent:       p.Extent,
		Xmin:         -margin,
		Ymin:         -margin,
		Xmax:         p.Extent + margin,
		Ymax:         p.Extent + margin,
	}
}
