// Package bench times repeated engine invocations on fixed, pre-built
// inputs and derives throughput and bandwidth figures. Inputs are built once
// by the caller and reused across repetitions so the measurement is not
// skewed by allocation warming caches.
package bench

import (
	"fmt"
	"time"

	"github.com/23skdu/longbow-gauge/internal/logger"
	"github.com/23skdu/longbow-gauge/internal/metrics"
)

// Time runs fn warmup times untimed, then reps times under the clock, and
// returns the average wall time per invocation. Logging is silenced for the
// timed section so console output never lands inside the measurement.
func Time(label string, warmup, reps int, fn func()) time.Duration {
	if reps <= 0 {
		panic(fmt.Sprintf("bench: repetition count %d must be positive", reps))
	}
	for i := 0; i < warmup; i++ {
		fn()
	}

	restore := logger.Quiet()
	start := time.Now()
	for i := 0; i < reps; i++ {
		fn()
	}
	elapsed := time.Since(start)
	restore()

	avg := elapsed / time.Duration(reps)
	metrics.RecordKernelDuration(label, avg)
	return avg
}

// Stats is one kernel measurement: average time per call plus the derived
// compute throughput and memory bandwidth.
type Stats struct {
	AvgTime  time.Duration
	TFLOPS   float64
	GBPerSec float64
}

// DenseStats derives figures for an (m, n, k) dense problem: 2mnk FLOPs,
// one-byte operands, two-byte output.
func DenseStats(t time.Duration, m, n, k int) Stats {
	flops := 2 * float64(m) * float64(n) * float64(k)
	bytes := float64(m*k) + float64(k*n) + 2*float64(m*n)
	return newStats(t, flops, bytes)
}

// ContiguousStats derives figures for a contiguous grouped problem with
// total row count m: the left operand is read once, each group's right
// operand once.
func ContiguousStats(t time.Duration, numGroups, m, n, k int) Stats {
	flops := 2 * float64(m) * float64(n) * float64(k)
	bytes := float64(m*k) + float64(numGroups)*float64(k*n) + 2*float64(m*n)
	return newStats(t, flops, bytes)
}

// MaskedStats derives figures for a masked grouped problem benchmarked with
// every row valid.
func MaskedStats(t time.Duration, numGroups, m, n, k int) Stats {
	flops := 2 * float64(numGroups) * float64(m) * float64(n) * float64(k)
	bytes := float64(numGroups) * (float64(m*k) + float64(k*n) + 2*float64(m*n))
	return newStats(t, flops, bytes)
}

func newStats(t time.Duration, flops, bytes float64) Stats {
	sec := t.Seconds()
	return Stats{
		AvgTime:  t,
		TFLOPS:   flops / sec / 1e12,
		GBPerSec: bytes / 1e9 / sec,
	}
}

// Report logs the measurement and publishes it to the metrics registry.
func (s Stats) Report(label string, shape string) {
	metrics.RecordThroughput(label, s.TFLOPS, s.GBPerSec)
	logger.Log.Info("benchmark",
		"kernel", label,
		"shape", shape,
		"avg_us", float64(s.AvgTime.Nanoseconds())/1e3,
		"tflops", s.TFLOPS,
		"gb_per_s", s.GBPerSec)
}
