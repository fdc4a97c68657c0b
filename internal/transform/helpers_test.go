package transform

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hytous/RigidLabeler/pkg/geometry"
)

func square() []geometry.Point2D {
	return []geometry.Point2D{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 100, Y: 100},
		{X: 0, Y: 100},
	}
}

func randomPoints(rng *rand.Rand, n int) []geometry.Point2D {
	points := make([]geometry.Point2D, n)
	for i := range points {
		points[i] = geometry.NewPoint2D(rng.Float64()*800-400, rng.Float64()*600-300)
	}
	return points
}

// angleDiff returns the smallest absolute difference between two angles in degrees.
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return math.Abs(d)
}

func assertParams(t *testing.T, want, got Params, tol float64) {
	t.Helper()
	assert.InDelta(t, 0, angleDiff(want.ThetaDeg, got.ThetaDeg), tol, "theta_deg: want %v got %v", want.ThetaDeg, got.ThetaDeg)
	assert.InDelta(t, want.TX, got.TX, tol, "tx")
	assert.InDelta(t, want.TY, got.TY, tol, "ty")
	assert.InDelta(t, want.ScaleX, got.ScaleX, tol, "scale_x")
	assert.InDelta(t, want.ScaleY, got.ScaleY, tol, "scale_y")
	assert.InDelta(t, want.Shear, got.Shear, tol, "shear")
}
