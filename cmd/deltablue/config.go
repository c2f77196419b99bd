package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *options) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		Long: `Show the resolved harness configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (DELTABLUE_*)
  3. Config file (--config or DELTABLUE_CONFIG)
  4. Defaults

Environment variables:
  DELTABLUE_CONFIG              - Config file path
  DELTABLUE_BENCHMARK           - Benchmark name
  DELTABLUE_ITERATIONS          - Measured iterations
  DELTABLUE_WARMUP              - Warm-up iterations
  DELTABLUE_INNER_ITERATIONS    - Workload problem size
  DELTABLUE_PARALLEL            - Concurrent copies
  DELTABLUE_CHANGE_REPETITIONS  - Plan executions per change
  DELTABLUE_OUTPUT              - Output format (text, json, yaml)
  DELTABLUE_LOG_LEVEL           - Log level
  DELTABLUE_METRICS_ADDR        - Prometheus metrics address

Examples:
  deltablue config --show
  deltablue config --show -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !show {
				return cmd.Help()
			}
			cfg := opts.cfg
			return render(cmd.OutOrStdout(), cfg.Output, cfg, func(w io.Writer) error {
				data, err := cfg.YAML()
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				_, err = w.Write(data)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Show resolved configuration")
	return cmd
}
