// Package embedding provides face-embedding vector math, extraction
// through an injected inference capability, enrollment aggregation,
// and embedding comparison.
package embedding

import (
	"errors"
	"math"
)

// Vector is a fixed-length face embedding. The dimension is set by the
// inference capability that produced it, not by this package.
type Vector []float32

// ErrEmptyEmbeddings is returned when an embedding has zero length.
var ErrEmptyEmbeddings = errors.New("empty embeddings")

// ErrDimensionMismatch is returned when two embeddings differ in length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrZeroNorm is returned when an embedding has zero magnitude.
var ErrZeroNorm = errors.New("embedding has zero norm")

// Norm returns the Euclidean magnitude of the vector.
func Norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b Vector) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// EuclideanDistance returns the Euclidean distance between two
// equal-length vectors.
func EuclideanDistance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged rather than dividing by zero.
func Normalize(v Vector) Vector {
	norm := Norm(v)
	out := make(Vector, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Average computes the elementwise mean of the vectors and
// L2-normalizes the result. All vectors must share one dimension.
func Average(vectors []Vector) (Vector, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyEmbeddings
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, ErrEmptyEmbeddings
	}

	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, ErrDimensionMismatch
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}

	mean := make(Vector, dim)
	n := float64(len(vectors))
	for i, s := range sum {
		mean[i] = float32(s / n)
	}

	return Normalize(mean), nil
}
