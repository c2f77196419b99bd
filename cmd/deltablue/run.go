package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gitrdm/deltablue/internal/harness"
)

type runOptions struct {
	warmUp            int
	parallel          int
	changeRepetitions int
	metricsAddr       string
}

func newRunCmd(opts *options) *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [benchmark] [num-iterations [inner-iterations]]",
		Short: "Run a benchmark",
		Long: `Run a benchmark and report the runtime of every measured iteration.

  benchmark         benchmark name, default: DeltaBlue
  num-iterations    number of times to execute the benchmark, default: 1
  inner-iterations  problem size of each workload, default: 1

Examples:
  deltablue run
  deltablue run DeltaBlue 10 1000
  deltablue run DeltaBlue 5 100 --warmup 2 --parallel 4 -o json`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, opts, ro, args)
		},
	}
	cmd.Flags().IntVar(&ro.warmUp, "warmup", 0, "Unmeasured iterations to run first")
	cmd.Flags().IntVar(&ro.parallel, "parallel", 1, "Independent copies to run concurrently")
	cmd.Flags().IntVar(&ro.changeRepetitions, "change-repetitions", 10, "Plan executions per variable change")
	cmd.Flags().StringVar(&ro.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runBenchmark(cmd *cobra.Command, opts *options, ro *runOptions, args []string) error {
	cfg := opts.cfg
	if len(args) > 0 {
		cfg.Benchmark = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("num-iterations %q: %w", args[1], err)
		}
		cfg.Iterations = n
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("inner-iterations %q: %w", args[2], err)
		}
		cfg.InnerIterations = n
	}
	flags := cmd.Flags()
	if flags.Changed("warmup") {
		cfg.WarmUp = ro.warmUp
	}
	if flags.Changed("parallel") {
		cfg.Parallel = ro.parallel
	}
	if flags.Changed("change-repetitions") {
		cfg.ChangeRepetitions = ro.changeRepetitions
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = ro.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := harness.NewMetrics(reg)

	if cfg.MetricsAddr != "" {
		shutdown, err := serveMetrics(cfg.MetricsAddr, reg, opts.logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	h := harness.New(cfg, harness.WithLogger(opts.logger), harness.WithMetrics(metrics))
	report, err := h.Run(ctx)
	if err != nil {
		return err
	}
	return harness.Write(cmd.OutOrStdout(), cfg.Output, report)
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
