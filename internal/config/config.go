package config

import (
	"fmt"
	"strings"
)

// Config carries the harness run parameters. One instance is built from
// flags at process start and validated before any workload is constructed.
type Config struct {
	// Seed seeds the session's random generator. Runs with equal seeds
	// build identical workloads.
	Seed int64

	// Tolerance is the normalized-difference pass bound.
	Tolerance float64

	// BenchWarmup and BenchReps shape the timing loop.
	BenchWarmup int
	BenchReps   int

	// Quick trims the shape sweeps to sizes a CPU engine finishes fast.
	Quick bool

	// MetricsAddr, when non-empty, serves prometheus metrics over HTTP
	// for the duration of the run.
	MetricsAddr string

	LogLevel  string
	LogFormat string
}

// Default returns the configuration the harness runs with when no flags are
// given.
func Default() Config {
	return Config{
		Seed:        0,
		Tolerance:   0.001,
		BenchWarmup: 1,
		BenchReps:   4,
		Quick:       false,
		LogLevel:    "INFO",
		LogFormat:   "console",
	}
}

func (c *Config) Validate() error {
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("invalid tolerance: %g (must be in (0, 1))", c.Tolerance)
	}
	if c.BenchReps <= 0 {
		return fmt.Errorf("invalid bench repetitions: %d (must be positive)", c.BenchReps)
	}
	if c.BenchWarmup < 0 {
		return fmt.Errorf("invalid bench warmup: %d (must be non-negative)", c.BenchWarmup)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q (must be console or json)", c.LogFormat)
	}
	return nil
}
