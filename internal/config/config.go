// Package config provides configuration management for the deltablue CLI.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (DELTABLUE_*)
// 3. Config file (--config or DELTABLUE_CONFIG)
// 4. Defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// DefaultBenchmark is the only benchmark the harness knows.
const DefaultBenchmark = "DeltaBlue"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all harness configuration.
type Config struct {
	// Benchmark is the name of the benchmark to run.
	Benchmark string `yaml:"benchmark" json:"benchmark"`

	// Iterations is the number of measured iterations.
	Iterations int `yaml:"iterations" json:"iterations"`

	// WarmUp is the number of unmeasured iterations run first.
	WarmUp int `yaml:"warmup" json:"warmup"`

	// InnerIterations is the problem size handed to each workload.
	InnerIterations int `yaml:"inner_iterations" json:"inner_iterations"`

	// Parallel is the number of independent copies run concurrently.
	Parallel int `yaml:"parallel" json:"parallel"`

	// ChangeRepetitions is how often a planner change re-executes its plan.
	ChangeRepetitions int `yaml:"change_repetitions" json:"change_repetitions"`

	// Output controls the report format (text, json, yaml).
	Output string `yaml:"output" json:"output"`

	// LogLevel is a slog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Benchmark:         DefaultBenchmark,
		Iterations:        1,
		WarmUp:            0,
		InnerIterations:   1,
		Parallel:          1,
		ChangeRepetitions: 10,
		Output:            OutputText,
		LogLevel:          "warn",
	}
}

// Load returns the defaults overlaid with the config file at path, if any,
// and then with DELTABLUE_* environment variables. An empty path falls back
// to DELTABLUE_CONFIG; a missing file is an error only when it was named.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DELTABLUE_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	// Unmarshal over the current values so absent keys keep their defaults.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from DELTABLUE_* environment variables.
func (c *Config) applyEnv() error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"DELTABLUE_BENCHMARK", &c.Benchmark},
		{"DELTABLUE_OUTPUT", &c.Output},
		{"DELTABLUE_LOG_LEVEL", &c.LogLevel},
		{"DELTABLUE_METRICS_ADDR", &c.MetricsAddr},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.name); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"DELTABLUE_ITERATIONS", &c.Iterations},
		{"DELTABLUE_WARMUP", &c.WarmUp},
		{"DELTABLUE_INNER_ITERATIONS", &c.InnerIterations},
		{"DELTABLUE_PARALLEL", &c.Parallel},
		{"DELTABLUE_CHANGE_REPETITIONS", &c.ChangeRepetitions},
	}
	for _, i := range ints {
		v, ok := os.LookupEnv(i.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, i.name, v)
		}
		*i.dst = n
	}
	return nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
		}
	}

	check(c.Benchmark != "", "benchmark name is empty")
	check(c.Iterations >= 1, "iterations must be at least 1, got %d", c.Iterations)
	check(c.WarmUp >= 0, "warmup must not be negative, got %d", c.WarmUp)
	check(c.InnerIterations >= 1, "inner_iterations must be at least 1, got %d", c.InnerIterations)
	check(c.Parallel >= 1, "parallel must be at least 1, got %d", c.Parallel)
	check(c.ChangeRepetitions >= 1, "change_repetitions must be at least 1, got %d", c.ChangeRepetitions)
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		check(false, "unknown output format %q", c.Output)
	}
	if _, err := c.SlogLevel(); err != nil {
		check(false, "%v", err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// YAML renders the configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
