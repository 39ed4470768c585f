// Package index provides an exact nearest-neighbor index over L2
// distance. Vectors are stored row-major in a single flat buffer and
// queries scan every row, so results are exact by construction.
package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK indicates a non-positive result count.
	ErrInvalidK = errors.New("k must be a positive integer")

	// ErrEmptyVector indicates an empty query or input vector.
	ErrEmptyVector = errors.New("vector must not be empty")
)

// ErrDimensionMismatch indicates a vector whose dimension differs from
// the one the index was established with.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("index: vector dimension mismatch: expected=%d, actual=%d", e.Expected, e.Actual)
}

// SearchResult is a single hit of a nearest-neighbor search.
type SearchResult struct {
	// Ordinal is the insertion position of the matched vector.
	Ordinal uint32

	// Distance is the squared L2 distance to the query.
	Distance float32
}
