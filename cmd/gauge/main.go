package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-gauge/internal/config"
	"github.com/23skdu/longbow-gauge/internal/engine"
	"github.com/23skdu/longbow-gauge/internal/logger"
	"github.com/23skdu/longbow-gauge/internal/verify"
)

var (
	seed        = flag.Int64("seed", 0, "Random seed for workload construction")
	tolerance   = flag.Float64("tolerance", verify.DefaultTolerance, "Normalized-difference pass bound")
	warmup      = flag.Int("warmup", 1, "Untimed warmup invocations per benchmark")
	reps        = flag.Int("reps", 4, "Timed invocations per benchmark")
	quick       = flag.Bool("quick", false, "Run reduced shape sweeps")
	metricsAddr = flag.String("metrics-addr", "", "Optional address to serve prometheus metrics on")
	logLevel    = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFormat   = flag.String("log-format", "console", "Log format (console or json)")
)

func main() {
	flag.Parse()

	cfg := config.Config{
		Seed:        *seed,
		Tolerance:   *tolerance,
		BenchWarmup: *warmup,
		BenchReps:   *reps,
		Quick:       *quick,
		MetricsAddr: *metricsAddr,
		LogLevel:    *logLevel,
		LogFormat:   *logFormat,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Log.Warn("metrics listener stopped", "error", err)
			}
		}()
		logger.Log.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	eng := engine.NewCPU()

	logger.Log.Info("starting GEMM validation harness", "seed", cfg.Seed, "quick", cfg.Quick)

	failed := false
	failed = runDenseSuite(cfg, rng, eng) != nil || failed
	failed = runContiguousSuite(cfg, rng, eng) != nil || failed
	failed = runMaskedSuite(cfg, rng, eng) != nil || failed

	if failed {
		logger.Log.Error("harness finished with failures")
		os.Exit(1)
	}
	logger.Log.Info("harness finished", "result", "all checks passed")
}
