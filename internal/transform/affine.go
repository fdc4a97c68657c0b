package transform

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// rankTolerance is the singular value ratio below which a column of the
// affine design matrix counts as dependent.
const rankTolerance = 1e-10

// EstimateAffine computes the unconstrained least-squares affine transform
//
//	fixed_i ≈ A * moving_i + t
//
// Each correspondence contributes two rows to a 2N x 6 system in the unknowns
// [a b tx c d ty], solved through an SVD. With exactly three non-collinear
// points the fit is exact. Collinear or coincident points leave the system
// rank-deficient; the minimum-norm solution is returned for them.
func EstimateAffine(fixed, moving []geometry.Point2D) (Result, error) {
	if err := validate(fixed, moving, Affine); err != nil {
		return Result{}, err
	}

	n := len(fixed)
	a := mat.NewDense(2*n, 6, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		x, y := moving[i].X, moving[i].Y

		// x' = a*x + b*y + tx
		a.Set(2*i, 0, x)
		a.Set(2*i, 1, y)
		a.Set(2*i, 2, 1)
		b.SetVec(2*i, fixed[i].X)

		// y' = c*x + d*y + ty
		a.Set(2*i+1, 3, x)
		a.Set(2*i+1, 4, y)
		a.Set(2*i+1, 5, 1)
		b.SetVec(2*i+1, fixed[i].Y)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return Result{}, newError(SingularTransform, "least squares failed: SVD did not converge")
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return Result{}, newError(SingularTransform, "least squares failed: design matrix has rank 0")
	}

	var coef mat.VecDense
	svd.SolveVecTo(&coef, b, rank)

	// The matrix comes from the solved coefficients, not from the decomposition.
	m := geometry.Affine(
		coef.AtVec(0), coef.AtVec(1), coef.AtVec(2),
		coef.AtVec(3), coef.AtVec(4), coef.AtVec(5),
	)
	return newResult(Affine, MatrixToAffineParams(m), m, fixed, moving)
}
