package workload

// mAlignment is the row-count granularity the engine's contiguous grouped
// layout tiles by. Every group's row extent must be a multiple of it.
const mAlignment = 128

// rowAlign is the hard lower-level alignment on total row counts required by
// the engine's bulk transfer path.
const rowAlign = 4

// MAlignment returns the minimum row-count granularity for grouped layouts.
func MAlignment() int {
	return mAlignment
}
