package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/23skdu/longbow-gauge/internal/bench"
	"github.com/23skdu/longbow-gauge/internal/engine"
	"github.com/23skdu/longbow-gauge/internal/logger"
	"github.com/23skdu/longbow-gauge/internal/workload"
)

var (
	kernel    = flag.String("kernel", "dense", "Kernel to benchmark (dense, contiguous, masked)")
	m         = flag.Int("m", 128, "Row count (per group for masked)")
	n         = flag.Int("n", 512, "Output column count")
	k         = flag.Int("k", 1024, "Inner dimension (multiple of 128)")
	numGroups = flag.Int("groups", 4, "Group count for grouped kernels")
	seed      = flag.Int64("seed", 0, "Random seed")
	warmup    = flag.Int("warmup", 1, "Untimed warmup invocations")
	reps      = flag.Int("reps", 8, "Timed invocations")
)

func main() {
	flag.Parse()
	logger.Setup("INFO", "console")

	if *k%128 != 0 {
		fmt.Fprintf(os.Stderr, "k must be a multiple of 128, got %d\n", *k)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	eng := engine.NewCPU()

	switch *kernel {
	case "dense":
		w := workload.BuildDense(rng, *m, *k, *n)
		t := bench.Time("dense", *warmup, *reps, func() {
			eng.Dense(w.X, w.Y, w.Out)
		})
		bench.DenseStats(t, *m, *n, *k).Report("dense",
			fmt.Sprintf("m=%d n=%d k=%d", *m, *n, *k))

	case "contiguous":
		w := workload.BuildContiguousGrouped(rng, *numGroups, *m, *k, *n)
		t := bench.Time("grouped_contiguous", *warmup, *reps, func() {
			eng.GroupedContiguous(w.X, w.Y, w.Out, w.GroupIndex)
		})
		bench.ContiguousStats(t, *numGroups, w.M, *n, *k).Report("grouped_contiguous",
			fmt.Sprintf("groups=%d m=%d n=%d k=%d", *numGroups, w.M, *n, *k))

	case "masked":
		w := workload.BuildMaskedGrouped(rng, *numGroups, *m, *k, *n)
		validRows := make([]int32, *numGroups)
		for i := range validRows {
			validRows[i] = int32(*m)
		}
		t := bench.Time("grouped_masked", *warmup, *reps, func() {
			eng.GroupedMasked(w.X, w.Y, w.Out, validRows, *m)
		})
		bench.MaskedStats(t, *numGroups, *m, *n, *k).Report("grouped_masked",
			fmt.Sprintf("groups=%d m_per_group=%d n=%d k=%d", *numGroups, *m, *n, *k))

	default:
		fmt.Fprintf(os.Stderr, "unknown kernel %q\n", *kernel)
		os.Exit(1)
	}
}
