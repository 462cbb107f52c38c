package device

import "fmt"

// MatMulNT computes X * Y^T in full precision: x is (m, k), y is (n, k),
// the result is (m, n). Accumulation is float64 and the result is rounded
// through half precision, matching the storage width of engine outputs.
// This is the ground-truth path: it never sees quantization.
func MatMulNT(x, y *Matrix) *Matrix {
	out := NewMatrix(x.rows, y.rows)
	MatMulNTInto(out, 0, x, y)
	return out
}

// MatMulNTInto writes X * Y^T into out starting at row dstRow. The workload
// builder uses it to fill per-group row ranges of a shared reference matrix.
func MatMulNTInto(out *Matrix, dstRow int, x, y *Matrix) {
	if x.cols != y.cols {
		panic(fmt.Sprintf("device: matmul inner dimension mismatch: X[%d,%d] * Y[%d,%d]^T",
			x.rows, x.cols, y.rows, y.cols))
	}
	if out.cols != y.rows || dstRow+x.rows > out.rows {
		panic(fmt.Sprintf("device: matmul output shape mismatch: out[%d,%d] at row %d for (%d, %d) result",
			out.rows, out.cols, dstRow, x.rows, y.rows))
	}
	k := x.cols
	for i := 0; i < x.rows; i++ {
		xRow := x.Row(i)
		outRow := out.Row(dstRow + i)
		for j := 0; j < y.rows; j++ {
			yRow := y.Row(j)
			var sum float64
			for l := 0; l < k; l++ {
				sum += float64(xRow[l]) * float64(yRow[l])
			}
			outRow[j] = RoundHalf(float32(sum))
		}
	}
}

// AbsMax returns max(|v|) over vals, 0 for an empty slice.
func AbsMax(vals []float32) float32 {
	var m float32
	for _, v := range vals {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}
