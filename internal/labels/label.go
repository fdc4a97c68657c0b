// Package labels persists registration labels for image pairs as JSON files.
package labels

import (
	"github.com/pkg/errors"

	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// ErrInvalid marks labels that fail validation.
var ErrInvalid = errors.New("invalid label")

// TiePoint is a pair of corresponding points picked on the fixed and moving image.
type TiePoint struct {
	Fixed  geometry.Point2D `json:"fixed"`
	Moving geometry.Point2D `json:"moving"`
}

// Meta holds optional annotations for a label.
type Meta struct {
	Comment   string `json:"comment,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Label describes the transform between one fixed and one moving image.
type Label struct {
	ImageFixed  string           `json:"image_fixed"`
	ImageMoving string           `json:"image_moving"`
	Mode        transform.Mode   `json:"mode"`
	Params      transform.Params `json:"rigid"`
	Matrix      geometry.Matrix3 `json:"matrix_3x3"`
	TiePoints   []TiePoint       `json:"tie_points"`
	Meta        *Meta            `json:"meta,omitempty"`
}

// Validate checks that the label can be stored and reused.
func (l *Label) Validate() error {
	if l.ImageFixed == "" || l.ImageMoving == "" {
		return errors.Wrap(ErrInvalid, "image_fixed and image_moving are required")
	}
	if !l.Matrix.IsAffine() {
		return errors.Wrapf(ErrInvalid, "matrix_3x3 bottom row must be [0 0 1], got %v", l.Matrix[2])
	}
	if !l.Matrix.IsFinite() {
		return errors.Wrap(ErrInvalid, "matrix_3x3 contains NaN or Inf values")
	}
	for i, tp := range l.TiePoints {
		if !tp.Fixed.IsFinite() || !tp.Moving.IsFinite() {
			return errors.Wrapf(ErrInvalid, "tie point %d contains NaN or Inf values", i)
		}
	}
	return nil
}

// Split returns the fixed and moving coordinates of tie points as parallel slices.
func Split(tps []TiePoint) (fixed, moving []geometry.Point2D) {
	fixed = make([]geometry.Point2D, len(tps))
	moving = make([]geometry.Point2D, len(tps))
	for i, tp := range tps {
		fixed[i] = tp.Fixed
		moving[i] = tp.Moving
	}
	return fixed, moving
}

// Join pairs parallel point slices into tie points. Extra points on the
// longer side are dropped.
func Join(fixed, moving []geometry.Point2D) []TiePoint {
	n := len(fixed)
	if len(moving) < n {
		n = len(moving)
	}
	tps := make([]TiePoint, n)
	for i := 0; i < n; i++ {
		tps[i] = TiePoint{Fixed: fixed[i], Moving: moving[i]}
	}
	return tps
}
