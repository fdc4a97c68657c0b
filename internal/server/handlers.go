package server

import (
	"net/http"
	"strings"

	"github.com/hytous/RigidLabeler/internal/imageio"
	"github.com/hytous/RigidLabeler/internal/labels"
	"github.com/hytous/RigidLabeler/internal/logging"
	"github.com/hytous/RigidLabeler/internal/preview"
	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/internal/version"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, version.Get(), "rigidlabeler backend alive")
}

// handleCompute estimates a transform from tie points. It serves both
// /compute/transform and the older /compute/rigid.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	mode, err := req.mode()
	if err != nil {
		writeError(w, err)
		return
	}
	if n := len(req.TiePoints); n < req.MinPointsRequired {
		writeError(w, transform.Errorf(transform.NotEnoughPoints,
			"not enough points to estimate %s transform (got %d, need at least %d)", mode, n, req.MinPointsRequired))
		return
	}

	fixed, moving := labels.Split(req.TiePoints)
	result, err := transform.Estimate(mode, fixed, moving)
	if err != nil {
		writeError(w, err)
		return
	}
	residuals, _, err := transform.Residuals(fixed, moving, result.Matrix)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Info("estimated %s transform from %d points (rms %.4f px) for %s -> %s",
		mode, result.NumPoints, result.RMSError, req.ImageMoving, req.ImageFixed)

	writeOK(w, computeResult{
		Rigid:     result.Params,
		Matrix:    result.Matrix,
		RMSError:  result.RMSError,
		NumPoints: result.NumPoints,
		Mode:      result.Mode,
		Residuals: residuals,
	}, "")
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	converted, params, err := convert(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, convertResult{Matrix: converted, Rigid: params}, "")
}

func convert(req *convertRequest) (geometry.Matrix3, transform.Params, error) {
	m, err := req.matrix()
	if err != nil {
		return m, transform.Params{}, err
	}

	origin := transform.OriginCorner
	if req.Origin != "" {
		if origin, err = transform.ParseOrigin(req.Origin); err != nil {
			return m, transform.Params{}, err
		}
	}
	mode := transform.Affine
	if req.Mode != "" {
		if mode, err = transform.ParseMode(req.Mode); err != nil {
			return m, transform.Params{}, err
		}
	}

	var out geometry.Matrix3
	switch target := strings.ToLower(strings.TrimSpace(req.Target)); target {
	case "normalized", "to_normalized":
		out, err = transform.ToNormalized(m, req.FixedSize, req.MovingSize, origin)
	case "pixel", "to_pixel":
		out, err = transform.ToPixel(m, req.FixedSize, req.MovingSize, origin)
	case "corner", "center":
		to, _ := transform.ParseOrigin(target)
		out, err = transform.Reorigin(m, req.FixedSize, req.MovingSize, origin, to)
	default:
		err = invalidInput("unknown conversion target %q, use 'normalized', 'pixel', 'corner' or 'center'", req.Target)
	}
	if err != nil {
		return out, transform.Params{}, err
	}

	params, err := transform.MatrixToParams(out, mode)
	return out, params, err
}

func (s *Server) handleResiduals(w http.ResponseWriter, r *http.Request) {
	var req residualsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	m, err := req.matrix()
	if err != nil {
		writeError(w, err)
		return
	}
	fixed, moving := labels.Split(req.TiePoints)
	residuals, rmsError, err := transform.Residuals(fixed, moving, m)
	if err != nil {
		writeError(w, err)
		return
	}
	if residuals == nil {
		residuals = []float64{}
	}
	writeOK(w, residualsResult{Residuals: residuals, RMSError: rmsError, NumPoints: len(residuals)}, "")
}

func (s *Server) handleSaveLabel(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	label, err := req.label()
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.store.Save(label)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Info("saved label %s", result.LabelPath)
	writeOK(w, result, "Label saved")
}

func (s *Server) handleLoadLabel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		label *labels.Label
		err   error
	)
	if path := q.Get("label_path"); path != "" {
		label, err = labels.LoadPath(path)
	} else {
		fixed, moving := q.Get("image_fixed"), q.Get("image_moving")
		if fixed == "" || moving == "" {
			writeError(w, invalidInput("image_fixed and image_moving query parameters are required"))
			return
		}
		label, err = s.store.Load(fixed, moving)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, label, "")
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, items, "")
}

func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fixed, moving := q.Get("image_fixed"), q.Get("image_moving")
	if fixed == "" || moving == "" {
		writeError(w, invalidInput("image_fixed and image_moving query parameters are required"))
		return
	}

	deleted, err := s.store.Delete(fixed, moving)
	if err != nil {
		writeError(w, err)
		return
	}
	message := "Label deleted"
	if !deleted {
		message = "No label for given image pair"
	}
	writeOK(w, deleteResult{Deleted: deleted}, message)
}

func (s *Server) previewRequest(req *warpRequest) (preview.Request, error) {
	if req.ImageFixed == "" || req.ImageMoving == "" {
		return preview.Request{}, invalidInput("image_fixed and image_moving are required")
	}
	for _, path := range []string{req.ImageFixed, req.ImageMoving} {
		if !imageio.IsSupportedFormat(path) {
			return preview.Request{}, invalidInput("unsupported image format %q, use one of %v", path, imageio.SupportedFormats())
		}
	}
	m, err := req.matrix()
	if err != nil {
		return preview.Request{}, err
	}
	return preview.Request{
		FixedPath:  req.ImageFixed,
		MovingPath: req.ImageMoving,
		Matrix:     m,
		Origin:     s.origin(req.UseCenterOrigin),
		BoardSize:  req.BoardSize,
	}, nil
}

func (s *Server) handleWarpPreview(w http.ResponseWriter, r *http.Request) {
	var req warpRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	preq, err := s.previewRequest(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	path, err := s.previews.WarpPreview(r.Context(), preq, req.OutputName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, warpResult{PreviewPath: path}, "")
}

func (s *Server) handleCheckerboard(w http.ResponseWriter, r *http.Request) {
	var req warpRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	preq, err := s.previewRequest(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.previews.Checkerboard(r.Context(), preq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, out, "")
}
