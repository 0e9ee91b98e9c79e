package domain

import (
	"fmt"
	"math"
)

// NoLimit is the sentinel upper bound for an unbounded page range.
const NoLimit = math.MaxInt

// PageRange maps an optional (first, count) request onto a half-open index
// range [low, high). Both absent means unbounded. If present, first must be
// non-negative and count positive; anything else is ErrInvalidRange, surfaced
// before any traversal executes.
func PageRange(first, count *int) (low, high int, err error) {
	if first == nil && count == nil {
		return 0, NoLimit, nil
	}
	if first == nil || count == nil {
		return 0, 0, fmt.Errorf("first and count must be given together: %w", ErrInvalidRange)
	}
	if *first < 0 || *count <= 0 {
		return 0, 0, fmt.Errorf("first=%d count=%d: %w", *first, *count, ErrInvalidRange)
	}
	return *first, *first + *count, nil
}

// ClampRange fits a half-open [low, high) range onto an n-element list,
// returning the bounds to slice with. An empty intersection yields low == high.
func ClampRange(n, low, high int) (int, int) {
	if low > n {
		low = n
	}
	if high > n {
		high = n
	}
	if high < low {
		high = low
	}
	return low, high
}
