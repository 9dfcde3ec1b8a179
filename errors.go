package metrigo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/metrigo/distance"
	"github.com/hupe1980/metrigo/engine"
	"github.com/hupe1980/metrigo/index"
)

var (
	// ErrNotFound is returned when an item is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrZeroVector is returned when a zero-magnitude vector is inserted into
	// or queried against a cosine index, where its angle is undefined.
	ErrZeroVector = errors.New("zero-magnitude vector has no direction")
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

// ErrInvalidDimension indicates an invalid configured dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// ErrInvalidDistanceKind indicates an unsupported distance kind.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDistanceKind struct {
	DistanceKind index.DistanceKind
	cause        error
}

func (e *ErrInvalidDistanceKind) Error() string {
	return fmt.Sprintf("invalid distance kind: %d", int(e.DistanceKind))
}

func (e *ErrInvalidDistanceKind) Unwrap() error { return e.cause }

// ErrSchemaConflict indicates a CreateIndex declaration that diverges from an
// existing index of the same name. Re-declaring an identical index is not a
// conflict; it returns the existing index.
type ErrSchemaConflict struct {
	Name      string
	Existing  IndexDecl
	Requested IndexDecl
}

func (e *ErrSchemaConflict) Error() string {
	return fmt.Sprintf("schema conflict for index %q: existing (dimension=%d, distance=%s) vs requested (dimension=%d, distance=%s)",
		e.Name,
		e.Existing.Dimension, e.Existing.DistanceKind,
		e.Requested.Dimension, e.Requested.DistanceKind,
	)
}

// translateError normalizes errors from the engine, index and distance
// layers into the package's public error taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, engine.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, distance.ErrZeroMagnitude) {
		return fmt.Errorf("%w: %w", ErrZeroVector, err)
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	var id *index.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidDimension{Dimension: id.Dimension, cause: err}
	}

	var dk *index.ErrInvalidDistanceKind
	if errors.As(err, &dk) {
		return &ErrInvalidDistanceKind{DistanceKind: dk.Kind, cause: err}
	}

	if errors.Is(err, index.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	return err
}
