// Package workload constructs the test cases the harness feeds to the GEMM
// engine: dense, contiguous grouped, and masked grouped. Every build returns
// freshly allocated quantized operands, a full-precision reference output,
// and the layout metadata the engine's entry point needs. Nothing is shared
// across builds.
package workload

import (
	"fmt"
	"math/rand"

	"github.com/23skdu/longbow-gauge/internal/device"
	"github.com/23skdu/longbow-gauge/internal/logger"
	"github.com/23skdu/longbow-gauge/internal/metrics"
	"github.com/23skdu/longbow-gauge/internal/quant"
)

// Dense is a single M x K by N x K^T problem. X carries per-token scales in
// the engine's aligned column-major layout, Y carries per-block scales.
type Dense struct {
	M, K, N int

	X   quant.Quantized
	Y   quant.Quantized
	Out *device.Matrix
	Ref *device.Matrix
}

// BuildDense draws random half-precision operands, computes the reference
// product, and quantizes. The scale transposition for X happens here, once,
// never inside a timed region.
func BuildDense(rng *rand.Rand, m, k, n int) *Dense {
	x := device.NewMatrix(m, k)
	y := device.NewMatrix(n, k)
	x.FillNormal(rng)
	y.FillNormal(rng)

	ref := device.MatMulNT(x, y)

	d := &Dense{
		M:   m,
		K:   k,
		N:   n,
		X:   quant.AlignTokenScales(quant.PerTokenCast(x)),
		Y:   quant.PerBlockCast(y),
		Out: device.NewMatrix(m, n),
		Ref: ref,
	}
	metrics.RecordWorkload("dense")
	logger.Log.Debug("built dense workload", "m", m, "k", k, "n", n)
	return d
}

// ContiguousGrouped is a batch of GEMM problems sharing K, with all left
// operands concatenated along rows. GroupIndex maps each row to its owning
// group; every group's row extent is a multiple of MAlignment().
type ContiguousGrouped struct {
	NumGroups int
	M, K, N   int

	GroupSizes []int
	GroupIndex []int32

	X   quant.Quantized
	Y   []quant.Quantized
	Out *device.Matrix
	Ref *device.Matrix
}

// BuildContiguousGrouped picks per-group row counts as random multiples of
// the alignment granularity around expectedMPerGroup (0.7x to 1.3x), then
// assembles the concatenated layout. A total row count that is not a
// multiple of 4 would make the engine's behavior undefined, so it panics
// rather than rounding.
func BuildContiguousGrouped(rng *rand.Rand, numGroups, expectedMPerGroup, k, n int) *ContiguousGrouped {
	align := MAlignment()
	groupSizes := make([]int, numGroups)
	m := 0
	for i := range groupSizes {
		lo := int(float64(expectedMPerGroup)*0.7) / align
		hi := int(float64(expectedMPerGroup)*1.3) / align
		groupSizes[i] = align * (lo + rng.Intn(hi-lo+1))
		m += groupSizes[i]
	}
	if m%rowAlign != 0 {
		panic(fmt.Sprintf("workload: total row count %d not a multiple of %d", m, rowAlign))
	}

	x := device.NewMatrix(m, k)
	x.FillNormal(rng)

	groupIndex := make([]int32, m)
	out := device.NewMatrix(m, n)

	// The reference starts as random filler; each group's row range is then
	// overwritten with that group's product. With aligned group sizes the
	// ranges cover every row.
	ref := device.NewMatrix(m, n)
	ref.FillNormal(rng)

	ys := make([]quant.Quantized, numGroups)
	start := 0
	for i, groupM := range groupSizes {
		end := start + groupM
		for r := start; r < end; r++ {
			groupIndex[r] = int32(i)
		}

		y := device.NewMatrix(n, k)
		y.FillNormal(rng)
		device.MatMulNTInto(ref, start, x.RowRange(start, end), y)
		ys[i] = quant.PerBlockCast(y)
		start = end
	}

	w := &ContiguousGrouped{
		NumGroups:  numGroups,
		M:          m,
		K:          k,
		N:          n,
		GroupSizes: groupSizes,
		GroupIndex: groupIndex,
		X:          quant.PerTokenCast(x),
		Y:          ys,
		Out:        out,
		Ref:        ref,
	}
	metrics.RecordWorkload("contiguous")
	logger.Log.Debug("built contiguous grouped workload",
		"groups", numGroups, "m", m, "k", k, "n", n)
	return w
}

// MaskedGrouped is a batch of same-shape problems stacked along a group
// axis. Each group's operands and scales are independent; a mask drawn at
// invocation time marks how many leading rows per group hold real data.
type MaskedGrouped struct {
	NumGroups int
	M, K, N   int

	X   []quant.Quantized
	Y   []quant.Quantized
	Out []*device.Matrix
	Ref []*device.Matrix
}

// BuildMaskedGrouped constructs all groups at full M rows. The reference is
// the full-M product per group; rows the mask later invalidates simply never
// get compared. M must be a multiple of 4.
func BuildMaskedGrouped(rng *rand.Rand, numGroups, m, k, n int) *MaskedGrouped {
	if m%rowAlign != 0 {
		panic(fmt.Sprintf("workload: masked row count %d not a multiple of %d", m, rowAlign))
	}

	w := &MaskedGrouped{
		NumGroups: numGroups,
		M:         m,
		K:         k,
		N:         n,
		X:         make([]quant.Quantized, numGroups),
		Y:         make([]quant.Quantized, numGroups),
		Out:       make([]*device.Matrix, numGroups),
		Ref:       make([]*device.Matrix, numGroups),
	}
	for g := 0; g < numGroups; g++ {
		x := device.NewMatrix(m, k)
		y := device.NewMatrix(n, k)
		x.FillNormal(rng)
		y.FillNormal(rng)

		w.Ref[g] = device.MatMulNT(x, y)
		w.X[g] = quant.AlignTokenScales(quant.PerTokenCast(x))
		w.Y[g] = quant.PerBlockCast(y)
		w.Out[g] = device.NewMatrix(m, n)
	}
	metrics.RecordWorkload("masked")
	logger.Log.Debug("built masked grouped workload",
		"groups", numGroups, "m", m, "k", k, "n", n)
	return w
}

// maskCandidates are the valid-row counts masks are drawn from, filtered to
// the group's row extent.
var maskCandidates = []int{64, 128, 192, 256, 320, 384}

// DrawMask picks a random valid-row count per group and returns the mask
// together with the expected per-group row count hint the engine takes
// (mean of the mask plus one, capped at m).
func DrawMask(rng *rand.Rand, numGroups, m int) (validRows []int32, expectedM int) {
	var candidates []int
	for _, c := range maskCandidates {
		if c <= m {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		panic(fmt.Sprintf("workload: no mask candidates fit %d rows", m))
	}

	validRows = make([]int32, numGroups)
	sum := 0
	for g := range validRows {
		v := candidates[rng.Intn(len(candidates))]
		validRows[g] = int32(v)
		sum += v
	}
	expectedM = sum/numGroups + 1
	if expectedM > m {
		expectedM = m
	}
	return validRows, expectedM
}
