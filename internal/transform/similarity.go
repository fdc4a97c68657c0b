package transform

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// minVariance is the smallest centered sum of squares of the moving points
// for which a scale factor is estimated.
const minVariance = 1e-12

// EstimateSimilarity computes the least-squares rigid (allowScale false) or
// similarity (allowScale true) transform
//
//	fixed_i ≈ scale * R * moving_i + t
//
// with the Kabsch/Umeyama method: centroid alignment followed by an SVD of
// the cross-covariance. R is always a proper rotation, never a reflection.
func EstimateSimilarity(fixed, moving []geometry.Point2D, allowScale bool) (Result, error) {
	mode := Rigid
	if allowScale {
		mode = Similarity
	}
	if err := validate(fixed, moving, mode); err != nil {
		return Result{}, err
	}

	n := len(fixed)
	mx, my := coordinates(moving)
	fx, fy := coordinates(fixed)

	muMoving := geometry.NewPoint2D(stat.Mean(mx, nil), stat.Mean(my, nil))
	muFixed := geometry.NewPoint2D(stat.Mean(fx, nil), stat.Mean(fy, nil))

	// Centered point sets, one point per row.
	x := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, mx[i]-muMoving.X)
		x.Set(i, 1, my[i]-muMoving.Y)
		y.Set(i, 0, fx[i]-muFixed.X)
		y.Set(i, 1, fy[i]-muFixed.Y)
	}

	// Cross-covariance H = X^T * Y.
	var h mat.Dense
	h.Mul(x.T(), y)

	var svd mat.SVD
	if !svd.Factorize(&h, mat.SVDFull) {
		return Result{}, newError(SingularTransform, "SVD failed: singular covariance matrix")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = V * U^T
	var r mat.Dense
	r.Mul(&v, u.T())
	sigma := svd.Values(nil)
	if mat.Det(&r) < 0 {
		// Negating the second row of V^T is negating the second column of V.
		corrected := mat.DenseCopyOf(&v)
		corrected.Set(0, 1, -v.At(0, 1))
		corrected.Set(1, 1, -v.At(1, 1))
		r.Mul(corrected, u.T())
		sigma[1] = -sigma[1]
	}

	scale := 1.0
	if allowScale {
		variance := floats.Dot(x.RawMatrix().Data, x.RawMatrix().Data)
		if variance < minVariance {
			return Result{}, newError(SingularTransform, "moving points have zero variance")
		}
		scale = floats.Sum(sigma) / variance
	}

	r00, r01 := r.At(0, 0), r.At(0, 1)
	r10, r11 := r.At(1, 0), r.At(1, 1)

	// t = mu_fixed - scale * R * mu_moving
	tx := muFixed.X - scale*(r00*muMoving.X+r01*muMoving.Y)
	ty := muFixed.Y - scale*(r10*muMoving.X+r11*muMoving.Y)

	theta := math.Atan2(r10, r00) * 180 / math.Pi

	m := geometry.Affine(
		scale*r00, scale*r01, tx,
		scale*r10, scale*r11, ty,
	)
	return newResult(mode, UniformParams(theta, tx, ty, scale), m, fixed, moving)
}
