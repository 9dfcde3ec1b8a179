package index

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/hupe1980/metrigo/distance"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmptyVector is returned when an empty vector is passed to an index operation.
	ErrEmptyVector = errors.New("empty vector")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension is a named error type for an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrInvalidDistanceKind is a named error type for an unsupported distance kind.
type ErrInvalidDistanceKind struct {
	Kind DistanceKind
}

func (e *ErrInvalidDistanceKind) Error() string {
	return fmt.Sprintf("invalid distance kind: %d", int(e.Kind))
}

// DistanceFunc represents a function for calculating the distance between two vectors.
type DistanceFunc func(v1, v2 []float32) (float32, error)

// DistanceKind represents the type of distance function used for calculating
// distances between vectors.
type DistanceKind int

// Constants representing the supported distance functions.
const (
	DistanceKindCosine DistanceKind = iota
	DistanceKindL2
)

// NewDistanceFunc returns a distance function based on the specified distance kind.
func NewDistanceFunc(kind DistanceKind) DistanceFunc {
	switch kind {
	case DistanceKindCosine:
		return distance.Cosine
	case DistanceKindL2:
		return distance.L2
	default:
		return nil
	}
}

// String returns a string representation of the DistanceKind.
func (dk DistanceKind) String() string {
	switch dk {
	case DistanceKindCosine:
		return "Cosine"
	case DistanceKindL2:
		return "L2"
	default:
		return "Unknown"
	}
}

// ValidateBasicOptions validates dimension and distance kind shared by all indexes.
func ValidateBasicOptions(dimension int, kind DistanceKind) error {
	if dimension <= 0 {
		return &ErrInvalidDimension{Dimension: dimension}
	}
	if NewDistanceFunc(kind) == nil {
		return &ErrInvalidDistanceKind{Kind: kind}
	}
	return nil
}

// SearchResult represents a search result.
type SearchResult struct {
	// ID is the document identifier of the search result.
	ID uint64

	// Distance is the distance between the query vector and the result vector.
	Distance float32
}

// Index represents a document-keyed index for vector search.
type Index interface {
	gob.GobEncoder
	gob.GobDecoder

	// Insert adds a vector to the index under the given document ID.
	// Re-inserting an existing ID replaces the prior vector.
	Insert(ctx context.Context, id uint64, v []float32) error

	// Delete removes the vector stored for the given document ID.
	// Deleting an unknown ID is a no-op.
	Delete(ctx context.Context, id uint64) error

	// KNNSearch returns the k nearest document IDs to the query, ordered by
	// ascending distance with ties broken by ascending ID.
	KNNSearch(ctx context.Context, q []float32, k int) ([]SearchResult, error)

	// Has reports whether the given document ID is indexed.
	Has(id uint64) bool

	// Len returns the number of indexed documents.
	Len() int

	// Dimension returns the configured vector dimensionality.
	Dimension() int

	// DistanceKind returns the configured distance kind.
	DistanceKind() DistanceKind
}
