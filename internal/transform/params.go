package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// Tolerance is the scale below which a decomposition is treated as degenerate.
const Tolerance = 1e-10

// Params is the human-readable form of a transform:
//
//	M = Rotation(ThetaDeg) * [[ScaleX, Shear*ScaleY], [0, ScaleY]], translation (TX, TY)
//
// Rigid results have unit scales and zero shear, similarity results have
// ScaleX == ScaleY and zero shear.
type Params struct {
	ThetaDeg float64 `json:"theta_deg"`
	TX       float64 `json:"tx"`
	TY       float64 `json:"ty"`
	ScaleX   float64 `json:"scale_x"`
	ScaleY   float64 `json:"scale_y"`
	Shear    float64 `json:"shear"`
}

// UniformParams returns rigid/similarity parameters with one scale factor.
func UniformParams(thetaDeg, tx, ty, scale float64) Params {
	return Params{ThetaDeg: thetaDeg, TX: tx, TY: ty, ScaleX: scale, ScaleY: scale}
}

// Scale returns the uniform scale of rigid/similarity parameters.
func (p Params) Scale() float64 {
	return p.ScaleX
}

// ParamsToMatrix builds the homogeneous matrix described by p.
func ParamsToMatrix(p Params) geometry.Matrix3 {
	theta := p.ThetaDeg * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	// Rotation(theta) * [[sx, shear*sy], [0, sy]]
	shearY := p.Shear * p.ScaleY
	return geometry.Affine(
		cos*p.ScaleX, cos*shearY-sin*p.ScaleY, p.TX,
		sin*p.ScaleX, sin*shearY+cos*p.ScaleY, p.TY,
	)
}

// MatrixToRigidParams reads rotation, uniform scale and translation from a
// rigid or similarity matrix. Scale is the norm of the first column. A scale
// below Tolerance yields a zero angle.
func MatrixToRigidParams(m geometry.Matrix3) Params {
	a, c := m[0][0], m[1][0]
	scale := math.Hypot(a, c)

	theta := 0.0
	if scale > Tolerance {
		theta = math.Atan2(c/scale, a/scale) * 180 / math.Pi
	}
	return UniformParams(theta, m[0][2], m[1][2], scale)
}

// MatrixToAffineParams decomposes the linear block of m as Q*R, with Q a
// proper rotation and R upper triangular with a non-negative diagonal.
// A first-axis scale below Tolerance yields a zero angle, and a second-axis
// scale below Tolerance yields zero shear.
func MatrixToAffineParams(m geometry.Matrix3) Params {
	q, r := qrDecompose(linearBlock(m))

	if q.det() < 0 {
		q, r = q.flipColumn(1), r.flipRow(1)
	}
	if r[0][0] < 0 {
		q, r = q.flipColumn(0), r.flipRow(0)
	}
	if r[1][1] < 0 {
		q, r = q.flipColumn(1), r.flipRow(1)
	}

	scaleX := math.Abs(r[0][0])
	scaleY := math.Abs(r[1][1])

	theta := 0.0
	if scaleX > Tolerance {
		theta = math.Atan2(q[1][0], q[0][0]) * 180 / math.Pi
	}
	shear := 0.0
	if scaleY > Tolerance {
		shear = r[0][1] / scaleY
	}

	return Params{
		ThetaDeg: theta,
		TX:       m[0][2],
		TY:       m[1][2],
		ScaleX:   scaleX,
		ScaleY:   scaleY,
		Shear:    shear,
	}
}

// MatrixToParams decomposes m according to the given mode.
func MatrixToParams(m geometry.Matrix3, mode Mode) (Params, error) {
	switch mode {
	case Rigid, Similarity:
		return MatrixToRigidParams(m), nil
	case Affine:
		return MatrixToAffineParams(m), nil
	}
	return Params{}, newError(InvalidInput, "unknown transform mode %d", int(mode))
}

// block2 is a 2x2 matrix value; corrections return new values.
type block2 [2][2]float64

func linearBlock(m geometry.Matrix3) block2 {
	return block2{
		{m[0][0], m[0][1]},
		{m[1][0], m[1][1]},
	}
}

func (b block2) det() float64 {
	return b[0][0]*b[1][1] - b[0][1]*b[1][0]
}

func (b block2) flipColumn(j int) block2 {
	b[0][j] = -b[0][j]
	b[1][j] = -b[1][j]
	return b
}

func (b block2) flipRow(i int) block2 {
	b[i][0] = -b[i][0]
	b[i][1] = -b[i][1]
	return b
}

func blockFromDense(d *mat.Dense) block2 {
	return block2{
		{d.At(0, 0), d.At(0, 1)},
		{d.At(1, 0), d.At(1, 1)},
	}
}

func qrDecompose(a block2) (q, r block2) {
	var qr mat.QR
	qr.Factorize(mat.NewDense(2, 2, []float64{
		a[0][0], a[0][1],
		a[1][0], a[1][1],
	}))

	var qd, rd mat.Dense
	qr.QTo(&qd)
	qr.RTo(&rd)
	return blockFromDense(&qd), blockFromDense(&rd)
}
