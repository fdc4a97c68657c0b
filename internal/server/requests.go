package server

import (
	"math"

	"github.com/hytous/RigidLabeler/internal/labels"
	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// paramsInput is the wire form of transform parameters. Missing scales
// default to one and the single "scale" field of older clients is accepted.
type paramsInput struct {
	ThetaDeg float64  `json:"theta_deg"`
	TX       float64  `json:"tx"`
	TY       float64  `json:"ty"`
	Scale    *float64 `json:"scale"`
	ScaleX   *float64 `json:"scale_x"`
	ScaleY   *float64 `json:"scale_y"`
	Shear    float64  `json:"shear"`
}

func (p *paramsInput) params() transform.Params {
	uniform := 1.0
	if p.Scale != nil {
		uniform = *p.Scale
	}
	out := transform.Params{
		ThetaDeg: p.ThetaDeg,
		TX:       p.TX,
		TY:       p.TY,
		ScaleX:   uniform,
		ScaleY:   uniform,
		Shear:    p.Shear,
	}
	if p.ScaleX != nil {
		out.ScaleX = *p.ScaleX
	}
	if p.ScaleY != nil {
		out.ScaleY = *p.ScaleY
	}
	return out
}

// transformInput carries a transform as matrix_3x3 or, alternatively, as rigid parameters.
type transformInput struct {
	Matrix [][]float64  `json:"matrix_3x3"`
	Rigid  *paramsInput `json:"rigid"`
}

// matrix returns the requested transform. The matrix wins when both are given.
func (in *transformInput) matrix() (geometry.Matrix3, error) {
	if in.Matrix != nil {
		return matrixFromRows(in.Matrix)
	}
	if in.Rigid != nil {
		return transform.ParamsToMatrix(in.Rigid.params()), nil
	}
	return geometry.Matrix3{}, invalidInput("must provide either 'rigid' or 'matrix_3x3'")
}

const bottomRowTolerance = 1e-9

// matrixFromRows checks that rows form a finite 3x3 affine matrix.
func matrixFromRows(rows [][]float64) (geometry.Matrix3, error) {
	var m geometry.Matrix3
	if len(rows) != 3 {
		return m, invalidInput("matrix_3x3 must have 3 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 3 {
			return m, invalidInput("matrix_3x3 row %d must have 3 values, got %d", i, len(row))
		}
		copy(m[i][:], row)
	}
	if !m.IsFinite() {
		return m, invalidInput("matrix_3x3 contains NaN or Inf values")
	}
	if math.Abs(m[2][0]) > bottomRowTolerance || math.Abs(m[2][1]) > bottomRowTolerance ||
		math.Abs(m[2][2]-1) > bottomRowTolerance {
		return m, invalidInput("matrix_3x3 bottom row must be [0, 0, 1], got %v", rows[2])
	}
	m[2] = [3]float64{0, 0, 1}
	return m, nil
}

type computeRequest struct {
	ImageFixed        string            `json:"image_fixed"`
	ImageMoving       string            `json:"image_moving"`
	TiePoints         []labels.TiePoint `json:"tie_points"`
	Mode              string            `json:"mode"`
	TransformMode     string            `json:"transform_mode"`
	AllowScale        bool              `json:"allow_scale"`
	MinPointsRequired int               `json:"min_points_required"`
}

// mode resolves the requested transform mode. Without an explicit mode,
// allow_scale selects similarity over rigid.
func (r *computeRequest) mode() (transform.Mode, error) {
	name := r.Mode
	if name == "" {
		name = r.TransformMode
	}
	if name != "" {
		return transform.ParseMode(name)
	}
	if r.AllowScale {
		return transform.Similarity, nil
	}
	return transform.Rigid, nil
}

type computeResult struct {
	Rigid     transform.Params `json:"rigid"`
	Matrix    geometry.Matrix3 `json:"matrix_3x3"`
	RMSError  float64          `json:"rms_error"`
	NumPoints int              `json:"num_points"`
	Mode      transform.Mode   `json:"mode"`
	Residuals []float64        `json:"residuals"`
}

type convertRequest struct {
	transformInput
	FixedSize  geometry.Size `json:"fixed_size"`
	MovingSize geometry.Size `json:"moving_size"`
	// Origin is the convention of the pixel-space matrix: "corner" or "center".
	Origin string `json:"origin"`
	// Target is "normalized", "pixel", "corner" or "center".
	Target string `json:"target"`
	Mode   string `json:"mode"`
}

type convertResult struct {
	Matrix geometry.Matrix3 `json:"matrix_3x3"`
	Rigid  transform.Params `json:"rigid"`
}

type residualsRequest struct {
	transformInput
	TiePoints []labels.TiePoint `json:"tie_points"`
}

type residualsResult struct {
	Residuals []float64 `json:"residuals"`
	RMSError  float64   `json:"rms_error"`
	NumPoints int       `json:"num_points"`
}

type saveRequest struct {
	transformInput
	ImageFixed  string            `json:"image_fixed"`
	ImageMoving string            `json:"image_moving"`
	Mode        string            `json:"mode"`
	TiePoints   []labels.TiePoint `json:"tie_points"`
	Meta        *labels.Meta      `json:"meta"`
}

// label builds the label to store. Parameters missing from the request are
// derived from the matrix and vice versa.
func (r *saveRequest) label() (*labels.Label, error) {
	mode := transform.Rigid
	if r.Mode != "" {
		var err error
		if mode, err = transform.ParseMode(r.Mode); err != nil {
			return nil, err
		}
	}

	m, err := r.matrix()
	if err != nil {
		return nil, err
	}

	var params transform.Params
	if r.Rigid != nil {
		params = r.Rigid.params()
	} else if params, err = transform.MatrixToParams(m, mode); err != nil {
		return nil, err
	}

	return &labels.Label{
		ImageFixed:  r.ImageFixed,
		ImageMoving: r.ImageMoving,
		Mode:        mode,
		Params:      params,
		Matrix:      m,
		TiePoints:   r.TiePoints,
		Meta:        r.Meta,
	}, nil
}

type deleteResult struct {
	Deleted bool `json:"deleted"`
}

type warpRequest struct {
	transformInput
	ImageFixed      string `json:"image_fixed"`
	ImageMoving     string `json:"image_moving"`
	OutputName      string `json:"output_name"`
	BoardSize       int    `json:"board_size"`
	UseCenterOrigin *bool  `json:"use_center_origin"`
}

type warpResult struct {
	PreviewPath string `json:"preview_path"`
}
