package workload

import (
	"math/rand"
	"testing"

	"github.com/23skdu/longbow-gauge/internal/quant"
)

func TestMAlignment(t *testing.T) {
	if MAlignment() != 128 {
		t.Errorf("MAlignment() = %d, want 128", MAlignment())
	}
}

func TestBuildDense(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := BuildDense(rng, 8, 256, 16)

	if d.X.Values.Rows() != 8 || d.X.Values.Cols() != 256 {
		t.Errorf("X shape (%d, %d), want (8, 256)", d.X.Values.Rows(), d.X.Values.Cols())
	}
	if d.Y.Values.Rows() != 16 || d.Y.Values.Cols() != 256 {
		t.Errorf("Y shape (%d, %d), want (16, 256)", d.Y.Values.Rows(), d.Y.Values.Cols())
	}
	if d.Out.Rows() != 8 || d.Out.Cols() != 16 {
		t.Errorf("Out shape (%d, %d), want (8, 16)", d.Out.Rows(), d.Out.Cols())
	}
	if d.Ref.Rows() != 8 || d.Ref.Cols() != 16 {
		t.Errorf("Ref shape (%d, %d), want (8, 16)", d.Ref.Rows(), d.Ref.Cols())
	}
	if _, ok := d.X.Scales.(*quant.ColMajorScales); !ok {
		t.Error("dense X scales are not in the aligned column-major layout")
	}
	if _, ok := d.Y.Scales.(*quant.ColMajorScales); ok {
		t.Error("dense Y scales must stay row-major")
	}
}

func TestBuildDenseDeterministicBySeed(t *testing.T) {
	a := BuildDense(rand.New(rand.NewSource(8)), 4, 128, 8)
	b := BuildDense(rand.New(rand.NewSource(8)), 4, 128, 8)
	for r := 0; r < 4; r++ {
		for c := 0; c < 8; c++ {
			if a.Ref.At(r, c) != b.Ref.At(r, c) {
				t.Fatalf("reference diverged at (%d, %d) for identical seeds", r, c)
			}
		}
	}
}

func TestBuildContiguousGroupedLayout(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	w := BuildContiguousGrouped(rng, 4, 256, 128, 64)

	if len(w.GroupSizes) != 4 {
		t.Fatalf("got %d group sizes, want 4", len(w.GroupSizes))
	}
	sum := 0
	for g, size := range w.GroupSizes {
		if size%MAlignment() != 0 {
			t.Errorf("group %d size %d not a multiple of %d", g, size, MAlignment())
		}
		if size < 128 || size > 384 {
			t.Errorf("group %d size %d outside the 0.7x to 1.3x band", g, size)
		}
		sum += size
	}
	if sum != w.M {
		t.Errorf("group sizes sum to %d, M is %d", sum, w.M)
	}
	if w.M%4 != 0 {
		t.Errorf("total rows %d not a multiple of 4", w.M)
	}

	if len(w.GroupIndex) != w.M {
		t.Fatalf("group index length %d, want %d", len(w.GroupIndex), w.M)
	}
	// The index must be non-decreasing and cover each group in one run of
	// exactly its size.
	counts := make([]int, w.NumGroups)
	for r, g := range w.GroupIndex {
		if r > 0 && g < w.GroupIndex[r-1] {
			t.Fatalf("group index decreases at row %d", r)
		}
		counts[g]++
	}
	for g, n := range counts {
		if n != w.GroupSizes[g] {
			t.Errorf("group %d has %d index entries, want %d", g, n, w.GroupSizes[g])
		}
	}

	if w.X.Values.Rows() != w.M || w.X.Values.Cols() != w.K {
		t.Errorf("X shape (%d, %d), want (%d, %d)", w.X.Values.Rows(), w.X.Values.Cols(), w.M, w.K)
	}
	if len(w.Y) != w.NumGroups {
		t.Errorf("got %d right operands, want %d", len(w.Y), w.NumGroups)
	}
	if w.Ref.Rows() != w.M || w.Ref.Cols() != w.N {
		t.Errorf("Ref shape (%d, %d), want (%d, %d)", w.Ref.Rows(), w.Ref.Cols(), w.M, w.N)
	}
}

func TestBuildContiguousGroupedIndependentWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	w := BuildContiguousGrouped(rng, 2, 128, 128, 32)

	// Two groups drawing independent weights must not end up with identical
	// per-block scales.
	a, b := w.Y[0].Scales, w.Y[1].Scales
	same := true
	for r := 0; r < a.Rows() && same; r++ {
		for c := 0; c < a.Cols(); c++ {
			if a.At(r, c) != b.At(r, c) {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("both groups produced identical weight scales")
	}
}

func TestBuildMaskedGrouped(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	w := BuildMaskedGrouped(rng, 3, 256, 128, 64)

	if len(w.X) != 3 || len(w.Y) != 3 || len(w.Out) != 3 || len(w.Ref) != 3 {
		t.Fatalf("group slice lengths (%d, %d, %d, %d), want 3 each",
			len(w.X), len(w.Y), len(w.Out), len(w.Ref))
	}
	for g := 0; g < 3; g++ {
		if w.X[g].Values.Rows() != 256 || w.X[g].Values.Cols() != 128 {
			t.Errorf("group %d X shape (%d, %d), want (256, 128)",
				g, w.X[g].Values.Rows(), w.X[g].Values.Cols())
		}
		if w.Ref[g].Rows() != 256 || w.Ref[g].Cols() != 64 {
			t.Errorf("group %d Ref shape (%d, %d), want (256, 64)",
				g, w.Ref[g].Rows(), w.Ref[g].Cols())
		}
		if _, ok := w.X[g].Scales.(*quant.ColMajorScales); !ok {
			t.Errorf("group %d X scales are not aligned column-major", g)
		}
	}

	// Groups draw independent data.
	if w.Ref[0].At(0, 0) == w.Ref[1].At(0, 0) && w.Ref[0].At(1, 1) == w.Ref[1].At(1, 1) {
		t.Error("groups 0 and 1 share reference data")
	}
}

func TestBuildMaskedGroupedRejectsUnalignedM(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for rows not a multiple of 4")
		}
	}()
	BuildMaskedGrouped(rand.New(rand.NewSource(12)), 1, 130, 128, 64)
}

func TestDrawMask(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for draw := 0; draw < 20; draw++ {
		validRows, expectedM := DrawMask(rng, 4, 256)

		if len(validRows) != 4 {
			t.Fatalf("mask length %d, want 4", len(validRows))
		}
		sum := 0
		for g, v := range validRows {
			switch v {
			case 64, 128, 192, 256:
			default:
				t.Errorf("group %d valid rows %d is not a candidate within 256", g, v)
			}
			sum += int(v)
		}
		if want := min(sum/4+1, 256); expectedM != want {
			t.Errorf("expected M hint %d, want %d", expectedM, want)
		}
		if expectedM > 256 {
			t.Errorf("expected M hint %d exceeds the row extent", expectedM)
		}
	}
}

func TestDrawMaskSmallExtent(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	validRows, expectedM := DrawMask(rng, 8, 64)
	for g, v := range validRows {
		if v != 64 {
			t.Errorf("group %d valid rows %d, only 64 fits", g, v)
		}
	}
	// Mean 64 plus one would exceed the extent; the hint caps at m.
	if expectedM != 64 {
		t.Errorf("expected M hint %d, want 64", expectedM)
	}
}

func TestDrawMaskRejectsTinyExtent(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when no candidate fits")
		}
	}()
	DrawMask(rand.New(rand.NewSource(15)), 1, 32)
}
