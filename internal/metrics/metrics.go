package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var totalChecks atomic.Int64

var (
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gemm_checks_total",
		Help: "Total number of GEMM correctness checks executed",
	}, []string{"kernel"})

	CheckFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gemm_check_failures_total",
		Help: "Total number of GEMM checks exceeding tolerance",
	}, []string{"kernel"})

	NormalizedDiff = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gemm_normalized_diff",
		Help:    "Distribution of normalized differences between engine output and reference",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 2e-4, 5e-4, 1e-3, 1e-2, 1e-1, 1},
	}, []string{"kernel"})

	KernelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gemm_kernel_duration_seconds",
		Help:    "Histogram of timed kernel invocation durations",
		Buckets: prometheus.DefBuckets,
	}, []string{"kernel"})

	ThroughputTFLOPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gemm_throughput_tflops",
		Help: "Last measured kernel throughput in TFLOPS",
	}, []string{"kernel"})

	BandwidthGBs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gemm_bandwidth_gb_per_s",
		Help: "Last measured kernel memory bandwidth in GB/s",
	}, []string{"kernel"})

	HarnessMemoryAllocated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harness_memory_allocated_bytes",
		Help: "Current bytes held by harness matrix allocations",
	})

	QuantizedMatrices = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantized_matrices_total",
		Help: "Total number of matrices quantized, by policy",
	}, []string{"policy"})

	WorkloadsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workloads_built_total",
		Help: "Total number of test workloads constructed, by layout",
	}, []string{"layout"})
)

// RecordCheck accounts for one verification of kernel output against the
// reference, pass or fail.
func RecordCheck(kernel string, diff float64, passed bool) {
	totalChecks.Add(1)
	ChecksTotal.WithLabelValues(kernel).Inc()
	NormalizedDiff.WithLabelValues(kernel).Observe(diff)
	if !passed {
		CheckFailures.WithLabelValues(kernel).Inc()
	}
}

func RecordKernelDuration(kernel string, duration time.Duration) {
	KernelDuration.WithLabelValues(kernel).Observe(duration.Seconds())
}

func RecordThroughput(kernel string, tflops, gbs float64) {
	ThroughputTFLOPS.WithLabelValues(kernel).Set(tflops)
	BandwidthGBs.WithLabelValues(kernel).Set(gbs)
}

func RecordHarnessMemory(bytes int64) {
	HarnessMemoryAllocated.Set(float64(bytes))
}

func RecordQuantization(policy string) {
	QuantizedMatrices.WithLabelValues(policy).Inc()
}

func RecordWorkload(layout string) {
	WorkloadsBuilt.WithLabelValues(layout).Inc()
}

// TotalChecks returns the process-lifetime number of checks recorded.
func TotalChecks() int64 {
	return totalChecks.Load()
}
