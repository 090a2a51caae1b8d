// Package commands provides the CLI commands for manifold.
package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/skosovsky/manifold/catalog"
	"github.com/skosovsky/manifold/internal/config"
	"github.com/skosovsky/manifold/internal/logging"
	"github.com/skosovsky/manifold/pipeline"
)

// Version is set at build time.
var Version = "0.1.0"

type rootFlags struct {
	envFile  string
	catalog  string
	logLevel string
	pretty   bool
}

// NewRoot returns the root command with all subcommands attached.
func NewRoot() *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "manifold",
		Short: "Anthropic manifold pipeline",
		Long: `manifold lists Claude models and answers OpenAI-style chat requests
through the Anthropic Messages API.

The API key is read from ANTHROPIC_API_KEY or a .env file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&f.envFile, "env-file", "", "Read valves from this .env file (default: ./.env if present)")
	cmd.PersistentFlags().StringVar(&f.catalog, "catalog", "", "Replace the built-in model table with this YAML file")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR), overrides MANIFOLD_LOG_LEVEL")
	cmd.PersistentFlags().BoolVar(&f.pretty, "pretty", false, "Human-readable logs")

	cmd.AddCommand(newModelsCmd(f), newPipeCmd(f))
	return cmd
}

// setup loads valves, initializes logging and builds the pipeline.
func (f *rootFlags) setup(cmd *cobra.Command) (*pipeline.Pipeline, zerolog.Logger, error) {
	var (
		valves config.Valves
		err    error
	)
	if f.envFile != "" {
		valves, err = config.Load(f.envFile)
	} else {
		valves, err = config.LoadDefault()
	}
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load valves: %w", err)
	}
	level := valves.LogLevel
	if f.logLevel != "" {
		level = f.logLevel
	}
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(level),
		Output: cmd.ErrOrStderr(),
		Pretty: f.pretty || valves.LogPretty,
	})
	log := logging.Component("pipeline")
	opts := []pipeline.Option{pipeline.WithLogger(log)}
	if f.catalog != "" {
		c, err := catalog.ParseFile(f.catalog)
		if err != nil {
			return nil, log, err
		}
		opts = append(opts, pipeline.WithCatalog(c))
	}
	return pipeline.New(valves, opts...), log, nil
}
