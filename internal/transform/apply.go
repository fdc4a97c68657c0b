// Package transform estimates rigid, similarity and affine transforms between
// corresponding point sets and converts them between parameter, pixel and
// normalized coordinate representations.
//
// All functions are pure: they take plain values and return fresh values,
// so they are safe to call concurrently.
package transform

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// Apply transforms each point by m. The result has the same order as points.
func Apply(m geometry.Matrix3, points []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(points))
	for i, p := range points {
		out[i] = m.Apply(p)
	}
	return out
}

// Residuals transforms the moving points by m and returns the Euclidean
// distance of each to its fixed counterpart, plus the RMS of those distances.
func Residuals(fixed, moving []geometry.Point2D, m geometry.Matrix3) ([]float64, float64, error) {
	if len(fixed) != len(moving) {
		return nil, 0, newError(InvalidInput,
			"number of fixed and moving points must match (got %d and %d)", len(fixed), len(moving))
	}
	if len(fixed) == 0 {
		return nil, 0, nil
	}

	transformed := Apply(m, moving)
	residuals := make([]float64, len(fixed))
	for i := range fixed {
		residuals[i] = fixed[i].Distance(transformed[i])
	}
	return residuals, rms(residuals), nil
}

func rms(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(values, values) / float64(len(values)))
}
