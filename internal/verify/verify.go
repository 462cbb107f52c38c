// Package verify judges engine output against the full-precision reference.
package verify

import (
	"fmt"

	"github.com/23skdu/longbow-gauge/internal/device"
	"github.com/23skdu/longbow-gauge/internal/logger"
	"github.com/23skdu/longbow-gauge/internal/metrics"
)

// DefaultTolerance is the pass/fail bound for the normalized difference in
// this domain.
const DefaultTolerance = 0.001

// NormalizedDiff returns a scale-invariant relative-error metric between out
// and ref: 1 - 2*sum(x*y) / sum(x^2 + y^2). It is 0 for identical inputs and
// grows toward 1 as the outputs decorrelate. Accumulation is float64.
func NormalizedDiff(out, ref *device.Matrix) float64 {
	if out.Rows() != ref.Rows() || out.Cols() != ref.Cols() {
		panic(fmt.Sprintf("verify: shape mismatch: out (%d, %d) vs ref (%d, %d)",
			out.Rows(), out.Cols(), ref.Rows(), ref.Cols()))
	}
	return normalizedDiff(out.Data(), ref.Data())
}

func normalizedDiff(x, y []float32) float64 {
	var num, denom float64
	for i := range x {
		xv := float64(x[i])
		yv := float64(y[i])
		num += xv * yv
		denom += xv*xv + yv*yv
	}
	if denom == 0 {
		return 0
	}
	return 1 - 2*num/denom
}

// Check compares out against ref and returns a descriptive error when the
// normalized difference exceeds tol. Failures carry the full shape context
// and are never retried.
func Check(kernel string, out, ref *device.Matrix, tol float64) error {
	diff := NormalizedDiff(out, ref)
	passed := diff < tol
	metrics.RecordCheck(kernel, diff, passed)
	if !passed {
		logger.Log.Error("verification failed",
			"kernel", kernel, "rows", out.Rows(), "cols", out.Cols(), "diff", diff, "tol", tol)
		return fmt.Errorf("%s: normalized diff %.5f exceeds tolerance %.5f (out shape %dx%d)",
			kernel, diff, tol, out.Rows(), out.Cols())
	}
	logger.Log.Debug("verification passed", "kernel", kernel, "diff", diff)
	return nil
}

// CheckMaskedGroup compares one group of a masked workload, restricted to the
// rows [0, validRows). Rows at or beyond validRows hold undefined data in
// both tensors and are never read.
func CheckMaskedGroup(kernel string, group int, out, ref *device.Matrix, validRows int, tol float64) error {
	if validRows < 0 || validRows > out.Rows() {
		panic(fmt.Sprintf("verify: valid row count %d out of range for %d rows", validRows, out.Rows()))
	}
	diff := normalizedDiff(out.RowRange(0, validRows).Data(), ref.RowRange(0, validRows).Data())
	passed := diff < tol
	metrics.RecordCheck(kernel, diff, passed)
	if !passed {
		logger.Log.Error("verification failed",
			"kernel", kernel, "group", group, "valid_rows", validRows,
			"rows", out.Rows(), "cols", out.Cols(), "diff", diff, "tol", tol)
		return fmt.Errorf("%s: group %d normalized diff %.5f exceeds tolerance %.5f (valid rows %d of %d)",
			kernel, group, diff, tol, validRows, out.Rows())
	}
	logger.Log.Debug("verification passed", "kernel", kernel, "group", group, "diff", diff)
	return nil
}
