package main

import (
	"fmt"
	"math/rand"

	"github.com/23skdu/longbow-gauge/internal/bench"
	"github.com/23skdu/longbow-gauge/internal/config"
	"github.com/23skdu/longbow-gauge/internal/engine"
	"github.com/23skdu/longbow-gauge/internal/logger"
	"github.com/23skdu/longbow-gauge/internal/verify"
	"github.com/23skdu/longbow-gauge/internal/workload"
)

type kn struct{ k, n int }

type denseShape struct {
	m int
	kn
}

type groupedShape struct {
	numGroups int
	m         int
	kn
}

var (
	denseKNs = []kn{{7168, 2112}, {1536, 24576}, {512, 32768}, {16384, 7168}, {7168, 4096}, {2048, 7168}}
	denseMs  = []int{64, 128, 4096}

	contiguousShapes = []groupedShape{
		{4, 8192, kn{7168, 4096}},
		{4, 8192, kn{2048, 7168}},
		{8, 4096, kn{7168, 4096}},
		{8, 4096, kn{2048, 7168}},
	}

	maskedGroups = []struct{ numGroups, m int }{{1, 1024}, {2, 512}, {4, 256}}
	maskedKNs    = []kn{{7168, 4096}, {2048, 7168}}
)

// Reduced sweeps for engines without hardware acceleration.
var (
	quickDenseKNs = []kn{{512, 256}, {1024, 512}}
	quickDenseMs  = []int{64, 128}

	quickContiguousShapes = []groupedShape{
		{4, 256, kn{512, 256}},
		{2, 384, kn{256, 384}},
	}

	quickMaskedGroups = []struct{ numGroups, m int }{{1, 128}, {2, 64}}
	quickMaskedKNs    = []kn{{512, 256}, {256, 384}}
)

const maskDraws = 10

func runDenseSuite(cfg config.Config, rng *rand.Rand, eng engine.GEMM) error {
	logger.Log.Info("testing dense GEMM")
	ms, kns := denseMs, denseKNs
	if cfg.Quick {
		ms, kns = quickDenseMs, quickDenseKNs
	}

	for _, m := range ms {
		for _, s := range kns {
			w := workload.BuildDense(rng, m, s.k, s.n)
			eng.Dense(w.X, w.Y, w.Out)
			if err := verify.Check("dense", w.Out, w.Ref, cfg.Tolerance); err != nil {
				return fmt.Errorf("dense m=%d k=%d n=%d: %w", m, s.k, s.n, err)
			}

			// Fresh tensors for timing, built exactly once so repeated
			// allocation does not keep feeding the cache.
			w = workload.BuildDense(rng, m, s.k, s.n)
			t := bench.Time("dense", cfg.BenchWarmup, cfg.BenchReps, func() {
				eng.Dense(w.X, w.Y, w.Out)
			})
			bench.DenseStats(t, m, s.n, s.k).Report("dense",
				fmt.Sprintf("m=%d n=%d k=%d", m, s.n, s.k))
		}
	}
	return nil
}

func runContiguousSuite(cfg config.Config, rng *rand.Rand, eng engine.GEMM) error {
	logger.Log.Info("testing grouped contiguous GEMM")
	shapes := contiguousShapes
	if cfg.Quick {
		shapes = quickContiguousShapes
	}

	for _, s := range shapes {
		w := workload.BuildContiguousGrouped(rng, s.numGroups, s.m, s.k, s.n)
		eng.GroupedContiguous(w.X, w.Y, w.Out, w.GroupIndex)
		if err := verify.Check("grouped_contiguous", w.Out, w.Ref, cfg.Tolerance); err != nil {
			return fmt.Errorf("contiguous groups=%d m=%d k=%d n=%d: %w", s.numGroups, w.M, s.k, s.n, err)
		}

		w = workload.BuildContiguousGrouped(rng, s.numGroups, s.m, s.k, s.n)
		t := bench.Time("grouped_contiguous", cfg.BenchWarmup, cfg.BenchReps, func() {
			eng.GroupedContiguous(w.X, w.Y, w.Out, w.GroupIndex)
		})
		bench.ContiguousStats(t, s.numGroups, w.M, s.n, s.k).Report("grouped_contiguous",
			fmt.Sprintf("groups=%d m=%d n=%d k=%d", s.numGroups, w.M, s.n, s.k))
	}
	return nil
}

func runMaskedSuite(cfg config.Config, rng *rand.Rand, eng engine.GEMM) error {
	logger.Log.Info("testing grouped masked GEMM")
	groups, kns := maskedGroups, maskedKNs
	if cfg.Quick {
		groups, kns = quickMaskedGroups, quickMaskedKNs
	}

	for _, g := range groups {
		for _, s := range kns {
			for i := 0; i < maskDraws; i++ {
				w := workload.BuildMaskedGrouped(rng, g.numGroups, g.m, s.k, s.n)
				validRows, expectedM := workload.DrawMask(rng, g.numGroups, g.m)
				eng.GroupedMasked(w.X, w.Y, w.Out, validRows, expectedM)
				for j := 0; j < g.numGroups; j++ {
					if err := verify.CheckMaskedGroup("grouped_masked", j, w.Out[j], w.Ref[j], int(validRows[j]), cfg.Tolerance); err != nil {
						return fmt.Errorf("masked groups=%d m=%d k=%d n=%d draw=%d: %w",
							g.numGroups, g.m, s.k, s.n, i, err)
					}
				}
			}

			// Benchmark with every row valid, fixed shapes.
			w := workload.BuildMaskedGrouped(rng, g.numGroups, g.m, s.k, s.n)
			validRows := make([]int32, g.numGroups)
			for j := range validRows {
				validRows[j] = int32(g.m)
			}
			t := bench.Time("grouped_masked", cfg.BenchWarmup, cfg.BenchReps, func() {
				eng.GroupedMasked(w.X, w.Y, w.Out, validRows, g.m)
			})
			bench.MaskedStats(t, g.numGroups, g.m, s.n, s.k).Report("grouped_masked",
				fmt.Sprintf("groups=%d m_per_group=%d n=%d k=%d", g.numGroups, g.m, s.n, s.k))
		}
	}
	return nil
}
