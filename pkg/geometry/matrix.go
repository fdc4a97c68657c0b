package geometry

import (
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// Matrix3 is a 3x3 homogeneous transform in row-major order.
//
//	[a b tx]
//	[c d ty]
//	[0 0 1 ]
//
// It maps moving-image coordinates to fixed-image coordinates:
// p_fixed = M * p_moving. Encoded as JSON it is a nested 3x3 array.
type Matrix3 [3][3]float64

// Identity returns the identity transform.
func Identity() Matrix3 {
	return Matrix3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Translation returns a translation transform.
func Translation(tx, ty float64) Matrix3 {
	m := Identity()
	m[0][2] = tx
	m[1][2] = ty
	return m
}

// Scaling returns an axis-aligned scaling transform.
func Scaling(sx, sy float64) Matrix3 {
	m := Identity()
	m[0][0] = sx
	m[1][1] = sy
	return m
}

// Rotation returns a counter-clockwise rotation around the origin.
func Rotation(radians float64) Matrix3 {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return Matrix3{
		{cos, -sin, 0},
		{sin, cos, 0},
		{0, 0, 1},
	}
}

// Affine builds a matrix from the six coefficients of [a b tx; c d ty].
func Affine(a, b, tx, c, d, ty float64) Matrix3 {
	return Matrix3{
		{a, b, tx},
		{c, d, ty},
		{0, 0, 1},
	}
}

// Apply applies the transform to a point. The bottom row is assumed to be
// [0 0 1], so no perspective division takes place.
func (m Matrix3) Apply(p Point2D) Point2D {
	return Point2D{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2],
	}
}

// Mul returns m * other. Applying the result equals applying other first.
func (m Matrix3) Mul(other Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m[i][k] * other[k][j]
			}
			r[i][j] = sum
		}
	}
	return r
}

// Det2 returns the determinant of the 2x2 linear block.
func (m Matrix3) Det2() float64 {
	return m[0][0]*m[1][1] - m[0][1]*m[1][0]
}

// Inverse returns the inverse of an affine matrix, if it exists.
func (m Matrix3) Inverse() (Matrix3, bool) {
	det := m.Det2()
	if math.Abs(det) < 1e-10 {
		return Matrix3{}, false
	}

	invDet := 1.0 / det
	a, b, tx := m[0][0], m[0][1], m[0][2]
	c, d, ty := m[1][0], m[1][1], m[1][2]
	return Affine(
		d*invDet, -b*invDet, (b*ty-d*tx)*invDet,
		-c*invDet, a*invDet, (c*tx-a*ty)*invDet,
	), true
}

// IsAffine reports whether the bottom row is exactly [0 0 1].
func (m Matrix3) IsAffine() bool {
	return m[2][0] == 0 && m[2][1] == 0 && m[2][2] == 1
}

// IsFinite reports whether every entry is finite.
func (m Matrix3) IsFinite() bool {
	for i := range m {
		for _, v := range m[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// ApproxEqual reports whether every entry differs by at most tol.
func (m Matrix3) ApproxEqual(other Matrix3, tol float64) bool {
	for i := range m {
		for j := range m[i] {
			if math.Abs(m[i][j]-other[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// Dense returns a copy of the matrix as a gonum dense matrix.
func (m Matrix3) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// Aff3 returns the top two rows in the layout used by golang.org/x/image.
func (m Matrix3) Aff3() f64.Aff3 {
	return f64.Aff3{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
	}
}
