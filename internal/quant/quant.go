// Package quant converts full-precision matrices into the 8-bit format the
// GEMM engine consumes, under two scaling policies: one scale per 128-element
// row segment (activations) and one scale per 128x128 block (weights).
package quant

import (
	"fmt"

	"github.com/23skdu/longbow-gauge/internal/device"
	"github.com/23skdu/longbow-gauge/internal/fp8"
	"github.com/23skdu/longbow-gauge/internal/metrics"
)

// BlockSize is the quantization granule in both dimensions.
const BlockSize = 128

// minAmax keeps scales strictly positive: an all-zero granule quantizes with
// scale minAmax/448 instead of dividing by zero.
const minAmax = 1e-4

// ScaleView is the scale-tensor access contract the engine consumes. Both the
// row-major device.Matrix and the column-major TMA-aligned layout satisfy it.
type ScaleView interface {
	Rows() int
	Cols() int
	At(r, c int) float32
}

// Quantized pairs 8-bit values with their scale tensor. Dequantization of
// element (r, c) is value * scale(granule of (r, c)).
type Quantized struct {
	Values *device.FP8Matrix
	Scales ScaleView
}

// NewQuantized checks the pairing invariant: the scale tensor's shape must be
// the per-token shape (rows, cols/128) or the per-block shape
// (ceil(rows/128), ceil(cols/128)) of the value matrix.
func NewQuantized(values *device.FP8Matrix, scales ScaleView) Quantized {
	sr, sc := scales.Rows(), scales.Cols()
	perToken := sr == values.Rows() && sc == ceilDiv(values.Cols(), BlockSize)
	perBlock := sr == ceilDiv(values.Rows(), BlockSize) && sc == ceilDiv(values.Cols(), BlockSize)
	if !perToken && !perBlock {
		panic(fmt.Sprintf("quant: scale shape (%d, %d) does not match value shape (%d, %d) under either policy",
			sr, sc, values.Rows(), values.Cols()))
	}
	return Quantized{Values: values, Scales: scales}
}

// PerTokenCast quantizes x with one scale per 128-element row segment.
// The column count must be a multiple of 128; anything else is a
// test-authoring bug and panics.
func PerTokenCast(x *device.Matrix) Quantized {
	if x.Cols()%BlockSize != 0 {
		panic(fmt.Sprintf("quant: per-token cast requires cols %% %d == 0, got (%d, %d)",
			BlockSize, x.Rows(), x.Cols()))
	}
	segs := x.Cols() / BlockSize
	values := device.NewFP8Matrix(x.Rows(), x.Cols())
	scales := device.NewMatrix(x.Rows(), segs)

	for r := 0; r < x.Rows(); r++ {
		src := x.Row(r)
		dst := values.Row(r)
		for s := 0; s < segs; s++ {
			seg := src[s*BlockSize : (s+1)*BlockSize]
			amax := device.AbsMax(seg)
			if amax < minAmax {
				amax = minAmax
			}
			scale := amax / fp8.MaxValue
			scales.Set(r, s, scale)
			for i, v := range seg {
				dst[s*BlockSize+i] = fp8.FromFloat32(v / scale)
			}
		}
	}

	metrics.RecordQuantization("per_token")
	return NewQuantized(values, scales)
}

// PerBlockCast quantizes x with one scale per 128x128 block. Conceptually x
// is zero-padded up to 128 multiples, quantized blockwise, and cropped back;
// since padding zeros never contribute to a block amax, the cast operates on
// the original extent directly and the output shape always equals the input
// shape.
func PerBlockCast(x *device.Matrix) Quantized {
	blockRows := ceilDiv(x.Rows(), BlockSize)
	blockCols := ceilDiv(x.Cols(), BlockSize)
	values := device.NewFP8Matrix(x.Rows(), x.Cols())
	scales := device.NewMatrix(blockRows, blockCols)

	for br := 0; br < blockRows; br++ {
		rEnd := min((br+1)*BlockSize, x.Rows())
		for bc := 0; bc < blockCols; bc++ {
			cStart := bc * BlockSize
			cEnd := min(cStart+BlockSize, x.Cols())

			var amax float32
			for r := br * BlockSize; r < rEnd; r++ {
				if m := device.AbsMax(x.Row(r)[cStart:cEnd]); m > amax {
					amax = m
				}
			}
			if amax < minAmax {
				amax = minAmax
			}
			scale := amax / fp8.MaxValue
			scales.Set(br, bc, scale)

			for r := br * BlockSize; r < rEnd; r++ {
				src := x.Row(r)
				dst := values.Row(r)
				for c := cStart; c < cEnd; c++ {
					dst[c] = fp8.FromFloat32(src[c] / scale)
				}
			}
		}
	}

	metrics.RecordQuantization("per_block")
	return NewQuantized(values, scales)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
