package engine

import (
	"fmt"

	"github.com/23skdu/longbow-gauge/internal/device"
	"github.com/23skdu/longbow-gauge/internal/fp8"
	"github.com/23skdu/longbow-gauge/internal/quant"
)

// CPU is the scalar reference engine. It follows the accumulation structure
// of the hardware kernel: per 128-wide K block, an inner product of decoded
// 8-bit values scaled by xscale[row, block] * yscale[colBlock, block], summed
// across blocks, with the result rounded to half precision on write-back.
type CPU struct{}

func NewCPU() *CPU {
	return &CPU{}
}

func (e *CPU) Dense(x, y quant.Quantized, out *device.Matrix) {
	m, k := x.Values.Rows(), x.Values.Cols()
	n := y.Values.Rows()
	checkDenseShapes(x, y, out, m, k, n)

	yDec := decodeAll(y.Values)
	xRow := make([]float32, k)
	kBlocks := k / quant.BlockSize

	for i := 0; i < m; i++ {
		fp8.DecodeSlice(xRow, x.Values.Row(i))
		outRow := out.Row(i)
		for j := 0; j < n; j++ {
			yRow := yDec[j*k : (j+1)*k]
			var total float64
			for kb := 0; kb < kBlocks; kb++ {
				var block float64
				for l := kb * quant.BlockSize; l < (kb+1)*quant.BlockSize; l++ {
					block += float64(xRow[l]) * float64(yRow[l])
				}
				total += block * float64(x.Scales.At(i, kb)) * float64(y.Scales.At(j/quant.BlockSize, kb))
			}
			outRow[j] = device.RoundHalf(float32(total))
		}
	}
}

func (e *CPU) GroupedContiguous(x quant.Quantized, y []quant.Quantized, out *device.Matrix, groupIndex []int32) {
	m, k := x.Values.Rows(), x.Values.Cols()
	if len(groupIndex) != m {
		panic(fmt.Sprintf("engine: group index length %d does not cover %d rows", len(groupIndex), m))
	}
	if m%4 != 0 {
		panic(fmt.Sprintf("engine: contiguous row count %d not a multiple of 4", m))
	}

	// Decode each group's right operand once; rows then dispatch by group.
	n := out.Cols()
	yDec := make([][]float32, len(y))
	for g := range y {
		checkRHSShapes(g, y[g], k, n)
		yDec[g] = decodeAll(y[g].Values)
	}

	xRow := make([]float32, k)
	kBlocks := k / quant.BlockSize
	for i := 0; i < m; i++ {
		g := groupIndex[i]
		if g < 0 || int(g) >= len(y) {
			panic(fmt.Sprintf("engine: row %d mapped to group %d of %d", i, g, len(y)))
		}
		fp8.DecodeSlice(xRow, x.Values.Row(i))
		outRow := out.Row(i)
		dec := yDec[g]
		for j := 0; j < n; j++ {
			yRow := dec[j*k : (j+1)*k]
			var total float64
			for kb := 0; kb < kBlocks; kb++ {
				var block float64
				for l := kb * quant.BlockSize; l < (kb+1)*quant.BlockSize; l++ {
					block += float64(xRow[l]) * float64(yRow[l])
				}
				total += block * float64(x.Scales.At(i, kb)) * float64(y[g].Scales.At(j/quant.BlockSize, kb))
			}
			outRow[j] = device.RoundHalf(float32(total))
		}
	}
}

func (e *CPU) GroupedMasked(x, y []quant.Quantized, out []*device.Matrix, validRows []int32, expectedMPerGroup int) {
	if len(x) != len(y) || len(x) != len(out) || len(x) != len(validRows) {
		panic(fmt.Sprintf("engine: masked group count mismatch: x=%d y=%d out=%d mask=%d",
			len(x), len(y), len(out), len(validRows)))
	}
	if expectedMPerGroup < 0 {
		panic(fmt.Sprintf("engine: negative expected row hint %d", expectedMPerGroup))
	}

	for g := range x {
		m, k := x[g].Values.Rows(), x[g].Values.Cols()
		n := y[g].Values.Rows()
		checkDenseShapes(x[g], y[g], out[g], m, k, n)
		valid := int(validRows[g])
		if valid < 0 || valid > m {
			panic(fmt.Sprintf("engine: group %d mask %d out of range for %d rows", g, valid, m))
		}

		yDec := decodeAll(y[g].Values)
		xRow := make([]float32, k)
		kBlocks := k / quant.BlockSize
		for i := 0; i < valid; i++ {
			fp8.DecodeSlice(xRow, x[g].Values.Row(i))
			outRow := out[g].Row(i)
			for j := 0; j < n; j++ {
				yRow := yDec[j*k : (j+1)*k]
				var total float64
				for kb := 0; kb < kBlocks; kb++ {
					var block float64
					for l := kb * quant.BlockSize; l < (kb+1)*quant.BlockSize; l++ {
						block += float64(xRow[l]) * float64(yRow[l])
					}
					total += block * float64(x[g].Scales.At(i, kb)) * float64(y[g].Scales.At(j/quant.BlockSize, kb))
				}
				outRow[j] = device.RoundHalf(float32(total))
			}
		}
	}
}

func decodeAll(m *device.FP8Matrix) []float32 {
	dec := make([]float32, m.Rows()*m.Cols())
	fp8.DecodeSlice(dec, m.Data())
	return dec
}

func checkDenseShapes(x, y quant.Quantized, out *device.Matrix, m, k, n int) {
	if k%quant.BlockSize != 0 {
		panic(fmt.Sprintf("engine: inner dimension %d not a multiple of %d", k, quant.BlockSize))
	}
	if y.Values.Cols() != k {
		panic(fmt.Sprintf("engine: operand K mismatch: x (%d, %d) vs y (%d, %d)",
			m, k, n, y.Values.Cols()))
	}
	if out.Rows() != m || out.Cols() != n {
		panic(fmt.Sprintf("engine: output shape (%d, %d) does not fit (%d, %d) problem",
			out.Rows(), out.Cols(), m, n))
	}
}

func checkRHSShapes(g int, y quant.Quantized, k, n int) {
	if y.Values.Cols() != k || y.Values.Rows() != n {
		panic(fmt.Sprintf("engine: group %d right operand shape (%d, %d), want (%d, %d)",
			g, y.Values.Rows(), y.Values.Cols(), n, k))
	}
}
