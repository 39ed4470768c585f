package ragkit

import (
	"errors"
	"fmt"

	"github.com/ragkit/ragkit/chunker"
	"github.com/ragkit/ragkit/embedding"
	"github.com/ragkit/ragkit/index"
	"github.com/ragkit/ragkit/persistence"
)

var (
	// ErrNotInitialized is returned when a query runs before Build or Load.
	ErrNotInitialized = errors.New("engine not initialized: call Build or Load first")

	// ErrNotFound is returned when Load finds no persisted snapshot.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when a persisted snapshot fails verification.
	ErrCorrupt = errors.New("corrupt snapshot")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidConfig is returned when the engine is misconfigured.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Corruption unification.
	if errors.Is(err, persistence.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	// Dimension and argument normalization.
	var idm *index.ErrDimensionMismatch
	if errors.As(err, &idm) {
		return &ErrDimensionMismatch{Expected: idm.Expected, Actual: idm.Actual, cause: err}
	}

	var edm *embedding.ErrDimensionMismatch
	if errors.As(err, &edm) {
		return &ErrDimensionMismatch{Expected: edm.Expected, Actual: edm.Actual, cause: err}
	}

	if errors.Is(err, index.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	var cp *chunker.ErrInvalidParams
	if errors.As(err, &cp) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return err
}
