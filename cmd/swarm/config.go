package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/PrincetonUniversity/fishswarm"
	"github.com/PrincetonUniversity/fishswarm/config"
)

// loadConfig returns the config file given as first argument or with
// --config, or the default parameters when there is none.
// Command line flags override the file.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if len(args) > 0 {
		path = args[0]
	}
	conf := config.Default()
	if path != "" {
		var err error
		if conf, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		conf.LogLevel = level
	}
	if f := cmd.Flags().Lookup("output"); f != nil && f.Changed {
		conf.Output = f.Value.String()
	}
	if f := cmd.Flags().Lookup("steps"); f != nil && f.Changed {
		conf.TotalSteps, _ = cmd.Flags().GetInt("steps")
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		conf.RandomSeed, _ = cmd.Flags().GetUint64("seed")
	}
	return conf, nil
}

// newLogger returns the logger configured for the command.
func newLogger(cmd *cobra.Command, conf *config.Config) *slog.Logger {
	return NewLogger(conf.LogLevel, cmd.ErrOrStderr())
}

// setup initializes the simulation described by conf.
func setup(conf *config.Config, log *slog.Logger, opts ...fishswarm.Option) (*fishswarm.Simulation, error) {
	p, err := conf.Parameters()
	if err != nil {
		return nil, err
	}
	return fishswarm.New(p, append([]fishswarm.Option{fishswarm.WithLogger(log)}, opts...)...)
}
