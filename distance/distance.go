package distance

import (
	"errors"
	"fmt"

	"github.com/hupe1980/metrigo/internal/math32"
)

var (
	// ErrVectorSizeMismatch is returned when two vectors have different lengths.
	ErrVectorSizeMismatch = errors.New("vector sizes do not match")

	// ErrZeroMagnitude is returned when a cosine distance involves a
	// zero-magnitude vector, for which the angle is undefined.
	ErrZeroMagnitude = errors.New("zero-magnitude vector")
)

// Magnitude calculates the L2 magnitude (length) of a vector.
func Magnitude(v []float32) float32 {
	return math32.Norm(v)
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return math32.Dot(a, b)
}

// Cosine calculates the cosine distance between two vectors,
// defined as 1 - dot(a,b) / (|a|*|b|).
//
// Returns ErrZeroMagnitude if either vector has zero magnitude.
func Cosine(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, ErrVectorSizeMismatch
	}

	magA := math32.Norm(a)
	magB := math32.Norm(b)
	if magA == 0 || magB == 0 {
		return 0, ErrZeroMagnitude
	}

	return 1 - math32.Dot(a, b)/(magA*magB), nil
}

// Chord calculates the chord distance between the directions of a and b:
// the Euclidean distance between the unit-normalized vectors, equal to
// sqrt(2 * cosine distance). Unlike cosine distance it satisfies the
// triangle inequality, and the two order vectors identically.
//
// Returns ErrZeroMagnitude if either vector has zero magnitude.
func Chord(a, b []float32) (float32, error) {
	c, err := Cosine(a, b)
	if err != nil {
		return 0, err
	}

	return math32.Sqrt(2 * c), nil
}

// L2 calculates the Euclidean (L2) distance between two vectors.
func L2(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, ErrVectorSizeMismatch
	}

	return math32.Sqrt(math32.SquaredL2(a, b)), nil
}

// Kind represents the distance function used for vector comparison.
type Kind int

const (
	KindCosine Kind = iota
	KindL2
)

func (k Kind) String() string {
	switch k {
	case KindCosine:
		return "Cosine"
	case KindL2:
		return "L2"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) (float32, error)

// Provider returns the distance function for the given kind.
func Provider(k Kind) (Func, error) {
	switch k {
	case KindCosine:
		return Cosine, nil
	case KindL2:
		return L2, nil
	default:
		return nil, fmt.Errorf("unsupported distance kind: %v", k)
	}
}
