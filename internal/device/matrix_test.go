package device

import (
	"math"
	"math/rand"
	"testing"
)

func TestNewMatrixShape(t *testing.T) {
	m := NewMatrix(3, 5)
	if m.Rows() != 3 || m.Cols() != 5 {
		t.Fatalf("expected shape (3, 5), got (%d, %d)", m.Rows(), m.Cols())
	}
	if m.NumElements() != 15 {
		t.Errorf("expected 15 elements, got %d", m.NumElements())
	}
	for _, v := range m.Data() {
		if v != 0 {
			t.Fatal("new matrix not zero-filled")
		}
	}
}

func TestNewMatrixNegativeDims(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative dimension")
		}
	}()
	NewMatrix(-1, 4)
}

func TestAtSetRow(t *testing.T) {
	m := NewMatrix(2, 3)
	m.Set(1, 2, 7.5)
	if m.At(1, 2) != 7.5 {
		t.Errorf("At(1,2) = %v, want 7.5", m.At(1, 2))
	}
	row := m.Row(1)
	if len(row) != 3 || row[2] != 7.5 {
		t.Errorf("Row(1) = %v, want view with element 7.5 at index 2", row)
	}
	// Row is a view, not a copy.
	row[0] = 1.25
	if m.At(1, 0) != 1.25 {
		t.Error("Row must alias the underlying storage")
	}
}

func TestRowRange(t *testing.T) {
	m := NewMatrix(4, 2)
	for i := 0; i < 4; i++ {
		m.Set(i, 0, float32(i))
	}
	sub := m.RowRange(1, 3)
	if sub.Rows() != 2 || sub.Cols() != 2 {
		t.Fatalf("RowRange shape (%d, %d), want (2, 2)", sub.Rows(), sub.Cols())
	}
	if sub.At(0, 0) != 1 || sub.At(1, 0) != 2 {
		t.Error("RowRange does not view the expected rows")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-bounds row range")
		}
	}()
	m.RowRange(2, 5)
}

func TestCloneDoesNotAlias(t *testing.T) {
	m := NewMatrix(2, 2)
	m.Set(0, 0, 3)
	c := m.Clone()
	c.Set(0, 0, 9)
	if m.At(0, 0) != 3 {
		t.Error("Clone must not alias the source")
	}
}

func TestRoundHalf(t *testing.T) {
	if got := RoundHalf(1.0); got != 1.0 {
		t.Errorf("RoundHalf(1) = %v, want 1", got)
	}
	// Half precision cannot represent 2049; it maps to 2048.
	if got := RoundHalf(2049); got != 2048 {
		t.Errorf("RoundHalf(2049) = %v, want 2048", got)
	}
}

func TestFillNormalDeterministic(t *testing.T) {
	a := NewMatrix(8, 16)
	b := NewMatrix(8, 16)
	a.FillNormal(rand.New(rand.NewSource(42)))
	b.FillNormal(rand.New(rand.NewSource(42)))
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatal("equal seeds must produce identical fills")
		}
	}

	c := NewMatrix(8, 16)
	c.FillNormal(rand.New(rand.NewSource(43)))
	same := true
	for i := range a.Data() {
		if a.Data()[i] != c.Data()[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical fills")
	}
}

func TestFillNormalIsHalfRounded(t *testing.T) {
	m := NewMatrix(4, 4)
	m.FillNormal(rand.New(rand.NewSource(1)))
	for _, v := range m.Data() {
		if v != RoundHalf(v) {
			t.Fatalf("value %v is not half-precision representable", v)
		}
	}
}

func TestMatMulNTKnownValues(t *testing.T) {
	// x = [[1, 2], [3, 4]], y = [[5, 6], [7, 8]] (both rows are k-vectors)
	x := MatrixFromData(2, 2, []float32{1, 2, 3, 4})
	y := MatrixFromData(2, 2, []float32{5, 6, 7, 8})
	out := MatMulNT(x, y)
	want := []float32{17, 23, 39, 53}
	for i, w := range want {
		if out.Data()[i] != w {
			t.Errorf("out[%d] = %v, want %v", i, out.Data()[i], w)
		}
	}
}

func TestMatMulNTIntoOffset(t *testing.T) {
	x := MatrixFromData(1, 2, []float32{1, 1})
	y := MatrixFromData(2, 2, []float32{2, 3, 4, 5})
	out := NewMatrix(3, 2)
	MatMulNTInto(out, 1, x, y)
	if out.At(1, 0) != 5 || out.At(1, 1) != 9 {
		t.Errorf("row 1 = (%v, %v), want (5, 9)", out.At(1, 0), out.At(1, 1))
	}
	if out.At(0, 0) != 0 || out.At(2, 0) != 0 {
		t.Error("rows outside the target range must be untouched")
	}
}

func TestMatMulNTDimensionMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for inner dimension mismatch")
		}
	}()
	MatMulNT(NewMatrix(2, 3), NewMatrix(2, 4))
}

func TestAbsMax(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want float32
	}{
		{"mixed signs", []float32{1, -5, 3}, 5},
		{"all negative", []float32{-2, -0.5}, 2},
		{"empty", nil, 0},
		{"zeros", []float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AbsMax(tt.in); got != tt.want {
				t.Errorf("AbsMax = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatMulNTHalfRoundsResult(t *testing.T) {
	x := NewMatrix(2, 4)
	y := NewMatrix(3, 4)
	x.FillNormal(rand.New(rand.NewSource(7)))
	y.FillNormal(rand.New(rand.NewSource(8)))
	out := MatMulNT(x, y)
	for _, v := range out.Data() {
		if v != RoundHalf(v) {
			t.Fatalf("output %v not representable in half precision", v)
		}
		if math.IsNaN(float64(v)) {
			t.Fatal("unexpected NaN in reference output")
		}
	}
}
