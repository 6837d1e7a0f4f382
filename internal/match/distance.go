// Package match implements nearest-embedding matching over a store
// snapshot: Euclidean distance, threshold decision, and an optional
// approximate candidate index for large catalogs.
package match

import (
	"errors"
	"math"
)

// ErrLengthMismatch is returned when two vectors of different lengths are
// compared. With store dimensionality enforced at insert time this should
// never surface from a match call.
var ErrLengthMismatch = errors.New("vector length mismatch")

// EuclideanDistance computes sqrt(sum((a[i]-b[i])^2)) over two vectors of
// equal length. Accumulation happens in float64 regardless of the float32
// storage precision to bound floating error across high-dimensional vectors.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
