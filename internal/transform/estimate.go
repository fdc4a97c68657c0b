package transform

import (
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// Result is the outcome of one estimation call.
type Result struct {
	Params
	Matrix    geometry.Matrix3 `json:"matrix_3x3"`
	RMSError  float64          `json:"rms_error"`
	NumPoints int              `json:"num_points"`
	Mode      Mode             `json:"mode"`
}

// Estimate fits the transform of the given mode that maps moving points onto
// fixed points. fixed[i] and moving[i] form one correspondence.
func Estimate(mode Mode, fixed, moving []geometry.Point2D) (Result, error) {
	switch mode {
	case Rigid:
		return EstimateSimilarity(fixed, moving, false)
	case Similarity:
		return EstimateSimilarity(fixed, moving, true)
	case Affine:
		return EstimateAffine(fixed, moving)
	}
	return Result{}, newError(InvalidInput, "unknown transform mode %d", int(mode))
}

// validate checks the inputs of an estimator before any matrix math.
func validate(fixed, moving []geometry.Point2D, mode Mode) error {
	if len(fixed) != len(moving) {
		return newError(InvalidInput,
			"number of fixed and moving points must match (got %d and %d)", len(fixed), len(moving))
	}
	if n, need := len(fixed), mode.MinPoints(); n < need {
		return newError(NotEnoughPoints,
			"not enough points to estimate %s transform (got %d, need at least %d)", mode, n, need)
	}
	for i := range fixed {
		if !fixed[i].IsFinite() || !moving[i].IsFinite() {
			return newError(InvalidInput, "point %d contains NaN or Inf values", i)
		}
	}
	return nil
}

func newResult(mode Mode, params Params, m geometry.Matrix3, fixed, moving []geometry.Point2D) (Result, error) {
	_, rmsError, err := Residuals(fixed, moving, m)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Params:    params,
		Matrix:    m,
		RMSError:  rmsError,
		NumPoints: len(fixed),
		Mode:      mode,
	}, nil
}

func coordinates(points []geometry.Point2D) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}
