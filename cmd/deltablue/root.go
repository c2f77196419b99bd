package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gitrdm/deltablue/internal/config"
)

// options holds the global flags shared by every subcommand.
type options struct {
	cfgFile  string
	logLevel string
	output   string

	// cfg is the resolved configuration, set in PersistentPreRunE.
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "deltablue",
		Short: "DeltaBlue incremental constraint planner benchmark",
		Long: `deltablue runs the DeltaBlue benchmark: a chain of equality constraints
and a projection of scale constraints, planned incrementally and executed
repeatedly.

Commands:
  run      Run a benchmark and report its timings
  config   Show the resolved configuration
  version  Show version information`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Config file (default: $DELTABLUE_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output format (text, json, yaml)")

	root.AddCommand(newRunCmd(opts), newConfigCmd(opts), newVersionCmd(opts))
	return root
}

// resolve loads the configuration and applies the global flags that were
// set explicitly.
func (o *options) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("output") {
		cfg.Output = o.output
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = newLogger(cmd.ErrOrStderr(), level)
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// render writes v as JSON or YAML, or falls back to text.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case config.OutputJSON:
		return writeJSON(w, v)
	case config.OutputYAML:
		return writeYAML(w, v)
	case config.OutputText, "":
		return text(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
