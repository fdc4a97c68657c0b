package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hytous/RigidLabeler/pkg/geometry"
)

func TestApply(t *testing.T) {
	m := geometry.Affine(
		0, -1, 10,
		1, 0, 20,
	)
	got := Apply(m, []geometry.Point2D{{X: 1, Y: 2}, {X: 0, Y: 0}, {X: -3, Y: 5}})

	want := []geometry.Point2D{{X: 8, Y: 21}, {X: 10, Y: 20}, {X: 5, Y: 17}}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i].X, got[i].X, 1e-12)
		assert.InDelta(t, want[i].Y, got[i].Y, 1e-12)
	}
}

func TestApplyEmpty(t *testing.T) {
	assert.Empty(t, Apply(geometry.Identity(), nil))
}

func TestResiduals(t *testing.T) {
	fixed := []geometry.Point2D{{X: 3, Y: 4}, {X: 10, Y: 10}}
	moving := []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 10}}

	residuals, rmsError, err := Residuals(fixed, moving, geometry.Identity())
	require.NoError(t, err)

	assert.Equal(t, []float64{5, 0}, residuals)
	assert.InDelta(t, math.Sqrt(25.0/2), rmsError, 1e-12)
}

func TestResidualsMismatch(t *testing.T) {
	_, _, err := Residuals(square(), square()[:2], geometry.Identity())
	require.Error(t, err)
	assert.True(t, IsKind(err, InvalidInput))
}

func TestResidualsEmpty(t *testing.T) {
	residuals, rmsError, err := Residuals(nil, nil, geometry.Identity())
	require.NoError(t, err)
	assert.Empty(t, residuals)
	assert.Zero(t, rmsError)
}
