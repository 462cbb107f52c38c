// Package engine defines the contract of the low-precision GEMM engine under
// test and provides the in-process CPU implementation the harness runs
// against by default. Engines write results in place into caller-provided
// buffers and abort on malformed input instead of producing garbage.
package engine

import (
	"github.com/23skdu/longbow-gauge/internal/device"
	"github.com/23skdu/longbow-gauge/internal/quant"
)

// GEMM is the set of kernel entry points the harness exercises. All three
// write into out; none return values. Shape or alignment violations panic.
type GEMM interface {
	// Dense computes out = dequant(x) * dequant(y)^T for a single problem.
	// x carries per-token scales, y per-block scales.
	Dense(x, y quant.Quantized, out *device.Matrix)

	// GroupedContiguous computes the row-concatenated grouped product:
	// row i of out is row i of x times y[groupIndex[i]]^T.
	GroupedContiguous(x quant.Quantized, y []quant.Quantized, out *device.Matrix, groupIndex []int32)

	// GroupedMasked computes per-group products over the leading
	// validRows[g] rows of each group; rows beyond the mask are left
	// untouched. expectedMPerGroup is a scheduling hint, not a bound.
	GroupedMasked(x, y []quant.Quantized, out []*device.Matrix, validRows []int32, expectedMPerGroup int)
}
