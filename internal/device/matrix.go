// Package device is the host-side numeric runtime for the harness: dense
// row-major matrices with half-precision storage emulation, the full-precision
// reference matmul, and allocation accounting.
package device

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/float16"

	"github.com/23skdu/longbow-gauge/internal/metrics"
)

var allocatedBytes int64

func traceAlloc(delta int64) {
	newVal := atomic.AddInt64(&allocatedBytes, delta)
	metrics.RecordHarnessMemory(newVal)
}

// AllocatedBytes reports bytes currently held by matrix allocations.
func AllocatedBytes() int64 {
	return atomic.LoadInt64(&allocatedBytes)
}

// Matrix is a dense row-major float32 matrix. Values that model
// half-precision storage are rounded through float16 when written
// (FillNormal, RoundHalf); the struct itself holds float32 for compute.
type Matrix struct {
	rows, cols int
	data       []float32
}

// NewMatrix allocates a zero-filled rows x cols matrix.
// Negative dimensions are a harness bug and panic immediately.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("device: invalid matrix shape (%d, %d)", rows, cols))
	}
	traceAlloc(int64(rows*cols) * 4)
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]float32, rows*cols),
	}
}

// MatrixFromData wraps an existing row-major slice. The slice length must
// equal rows*cols.
func MatrixFromData(rows, cols int, data []float32) *Matrix {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("device: data length %d does not match shape (%d, %d)", len(data), rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

func (m *Matrix) Rows() int { return m.rows }

func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) Data() []float32 { return m.data }

func (m *Matrix) At(r, c int) float32 {
	return m.data[r*m.cols+c]
}

func (m *Matrix) Set(r, c int, v float32) {
	m.data[r*m.cols+c] = v
}

// Row returns the r-th row as a view into the underlying storage.
func (m *Matrix) Row(r int) []float32 {
	start := r * m.cols
	return m.data[start : start+m.cols]
}

// RowRange returns rows [start, end) as a view.
func (m *Matrix) RowRange(start, end int) *Matrix {
	if start < 0 || end > m.rows || start > end {
		panic(fmt.Sprintf("device: row range [%d, %d) out of bounds for %d rows", start, end, m.rows))
	}
	return &Matrix{
		rows: end - start,
		cols: m.cols,
		data: m.data[start*m.cols : end*m.cols],
	}
}

func (m *Matrix) NumElements() int {
	return m.rows * m.cols
}

// Clone returns a fresh copy with no aliasing to m.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.rows, m.cols)
	copy(out.data, m.data)
	return out
}

// Free drops the backing storage and updates the allocation gauge.
func (m *Matrix) Free() {
	if m.data != nil {
		traceAlloc(-int64(cap(m.data)) * 4)
		m.data = nil
	}
}

// RoundHalf rounds v through IEEE half precision, emulating 16-bit storage.
func RoundHalf(v float32) float32 {
	return float16.New(v).Float32()
}

// FillNormal fills m with standard-normal values rounded through half
// precision, the distribution the engine under test is validated against.
func (m *Matrix) FillNormal(rng *rand.Rand) {
	for i := range m.data {
		m.data[i] = RoundHalf(float32(rng.NormFloat64()))
	}
}

// FP8Matrix is a dense row-major matrix of 8-bit float codes. Decoding is the
// engine's job; the harness only lays the bytes out.
type FP8Matrix struct {
	rows, cols int
	data       []byte
}

// NewFP8Matrix allocates a zero-filled rows x cols 8-bit matrix.
func NewFP8Matrix(rows, cols int) *FP8Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("device: invalid matrix shape (%d, %d)", rows, cols))
	}
	traceAlloc(int64(rows * cols))
	return &FP8Matrix{
		rows: rows,
		cols: cols,
		data: make([]byte, rows*cols),
	}
}

func (m *FP8Matrix) Rows() int { return m.rows }

func (m *FP8Matrix) Cols() int { return m.cols }

func (m *FP8Matrix) Data() []byte { return m.data }

func (m *FP8Matrix) At(r, c int) byte {
	return m.data[r*m.cols+c]
}

func (m *FP8Matrix) Set(r, c int, v byte) {
	m.data[r*m.cols+c] = v
}

// Row returns the r-th row as a view into the underlying storage.
func (m *FP8Matrix) Row(r int) []byte {
	start := r * m.cols
	return m.data[start : start+m.cols]
}

// Free drops the backing storage and updates the allocation gauge.
func (m *FP8Matrix) Free() {
	if m.data != nil {
		traceAlloc(-int64(cap(m.data)))
		m.data = nil
	}
}
