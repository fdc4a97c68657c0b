package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hytous/RigidLabeler/internal/config"
	"github.com/hytous/RigidLabeler/internal/imageio"
	"github.com/hytous/RigidLabeler/internal/labels"
	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"error_code"`
	Data      json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Resolve(dir)
	require.NoError(t, cfg.EnsureDirs())
	return New(cfg), dir
}

func call(t *testing.T, s *Server, method, target string, body interface{}) envelope {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func tiePoints(fixed, moving []geometry.Point2D) []map[string]interface{} {
	out := make([]map[string]interface{}, len(fixed))
	for i := range fixed {
		out[i] = map[string]interface{}{"fixed": fixed[i], "moving": moving[i]}
	}
	return out
}

func square() []geometry.Point2D {
	return []geometry.Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	env := call(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, "ok", env.Status)
	assert.Equal(t, "rigidlabeler backend alive", env.Message)
	assert.Contains(t, string(env.Data), `"version"`)
}

func TestComputeRigidWithScale(t *testing.T) {
	s, _ := newTestServer(t)
	moving := square()
	fixed := transform.Apply(transform.ParamsToMatrix(transform.UniformParams(90, 5, -3, 1.2)), moving)

	env := call(t, s, http.MethodPost, "/compute/rigid", map[string]interface{}{
		"tie_points":          tiePoints(fixed, moving),
		"allow_scale":         true,
		"min_points_required": 2,
	})
	require.Equal(t, "ok", env.Status, env.Message)

	var res computeResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, transform.Similarity, res.Mode)
	assert.InDelta(t, 90, res.Rigid.ThetaDeg, 1e-6)
	assert.InDelta(t, 5, res.Rigid.TX, 1e-6)
	assert.InDelta(t, -3, res.Rigid.TY, 1e-6)
	assert.InDelta(t, 1.2, res.Rigid.ScaleX, 1e-6)
	assert.Equal(t, 4, res.NumPoints)
	assert.Len(t, res.Residuals, 4)
	assert.Less(t, res.RMSError, 1e-6)
}

func TestComputeTransformAffine(t *testing.T) {
	s, _ := newTestServer(t)
	moving := []geometry.Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}}
	fixed := []geometry.Point2D{{X: 10, Y: 20}, {X: 210, Y: 30}, {X: 40, Y: 170}}

	env := call(t, s, http.MethodPost, "/compute/transform", map[string]interface{}{
		"tie_points":     tiePoints(fixed, moving),
		"transform_mode": "affine",
	})
	require.Equal(t, "ok", env.Status, env.Message)

	var res computeResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, transform.Affine, res.Mode)
	assert.InDelta(t, 2, res.Matrix[0][0], 1e-9)
	assert.InDelta(t, 0.3, res.Matrix[0][1], 1e-9)
}

func TestComputeErrors(t *testing.T) {
	s, _ := newTestServer(t)
	point := []geometry.Point2D{{X: 3, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 3}}

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{
			name: "single point",
			body: map[string]interface{}{"tie_points": tiePoints(square()[:1], square()[:1])},
			code: "NOT_ENOUGH_POINTS",
		},
		{
			name: "below requested minimum",
			body: map[string]interface{}{"tie_points": tiePoints(square(), square()), "min_points_required": 5},
			code: "NOT_ENOUGH_POINTS",
		},
		{
			name: "unknown mode",
			body: map[string]interface{}{"tie_points": tiePoints(square(), square()), "mode": "projective"},
			code: "INVALID_INPUT",
		},
		{
			name: "malformed body",
			body: `{"tie_points": [`,
			code: "INVALID_INPUT",
		},
		{
			name: "coincident similarity",
			body: map[string]interface{}{"tie_points": tiePoints(square()[:3], point), "mode": "similarity"},
			code: "SINGULAR_TRANSFORM",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := call(t, s, http.MethodPost, "/compute/transform", tt.body)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tt.code, env.ErrorCode, env.Message)
			assert.Equal(t, "null", string(env.Data))
		})
	}
}

func TestComputeCollinearAffine(t *testing.T) {
	s, _ := newTestServer(t)
	moving := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}
	fixed := []geometry.Point2D{{X: 5, Y: 0}, {X: 6, Y: 1}, {X: 7, Y: 2}}

	env := call(t, s, http.MethodPost, "/compute/transform", map[string]interface{}{
		"tie_points": tiePoints(fixed, moving),
		"mode":       "affine",
	})
	require.Equal(t, "ok", env.Status, env.Message)

	var res computeResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.InDelta(t, 0, res.RMSError, 1e-9)
	assert.InDelta(t, 5, res.Matrix[0][2], 1e-9)
}

func TestConvertRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	m := transform.ParamsToMatrix(transform.UniformParams(30, 12, -8, 1))
	sizes := map[string]interface{}{
		"fixed_size":  geometry.NewSize(640, 480),
		"moving_size": geometry.NewSize(320, 240),
		"origin":      "center",
	}

	body := map[string]interface{}{"matrix_3x3": m, "target": "normalized"}
	for k, v := range sizes {
		body[k] = v
	}
	env := call(t, s, http.MethodPost, "/transform/convert", body)
	require.Equal(t, "ok", env.Status, env.Message)

	var norm convertResult
	require.NoError(t, json.Unmarshal(env.Data, &norm))

	body = map[string]interface{}{"matrix_3x3": norm.Matrix, "target": "pixel"}
	for k, v := range sizes {
		body[k] = v
	}
	env = call(t, s, http.MethodPost, "/transform/convert", body)
	require.Equal(t, "ok", env.Status, env.Message)

	var back convertResult
	require.NoError(t, json.Unmarshal(env.Data, &back))
	assert.True(t, m.ApproxEqual(back.Matrix, 1e-9))
	assert.InDelta(t, 30, back.Rigid.ThetaDeg, 1e-9)
}

func TestConvertErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"zero size", map[string]interface{}{
			"matrix_3x3": geometry.Identity(), "target": "normalized",
			"fixed_size": geometry.NewSize(0, 10), "moving_size": geometry.NewSize(10, 10),
		}},
		{"bad target", map[string]interface{}{
			"matrix_3x3": geometry.Identity(), "target": "polar",
			"fixed_size": geometry.NewSize(10, 10), "moving_size": geometry.NewSize(10, 10),
		}},
		{"short matrix", map[string]interface{}{
			"matrix_3x3": [][]float64{{1, 0, 0}, {0, 1, 0}}, "target": "pixel",
			"fixed_size": geometry.NewSize(10, 10), "moving_size": geometry.NewSize(10, 10),
		}},
		{"projective matrix", map[string]interface{}{
			"matrix_3x3": [][]float64{{1, 0, 0}, {0, 1, 0}, {0.1, 0, 1}}, "target": "pixel",
			"fixed_size": geometry.NewSize(10, 10), "moving_size": geometry.NewSize(10, 10),
		}},
		{"no transform", map[string]interface{}{
			"target":     "pixel",
			"fixed_size": geometry.NewSize(10, 10), "moving_size": geometry.NewSize(10, 10),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := call(t, s, http.MethodPost, "/transform/convert", tt.body)
			assert.Equal(t, "INVALID_INPUT", env.ErrorCode, env.Message)
		})
	}
}

func TestResidualsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	fixed := []geometry.Point2D{{X: 3, Y: 4}, {X: 10, Y: 10}}
	moving := []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 10}}

	env := call(t, s, http.MethodPost, "/transform/residuals", map[string]interface{}{
		"tie_points": tiePoints(fixed, moving),
		"rigid":      map[string]float64{"theta_deg": 0, "tx": 0, "ty": 0},
	})
	require.Equal(t, "ok", env.Status, env.Message)

	var res residualsResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, []float64{5, 0}, res.Residuals)
	assert.Equal(t, 2, res.NumPoints)
}

func TestLabelLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	query := "?" + url.Values{"image_fixed": {"/imgs/a.png"}, "image_moving": {"/imgs/b.png"}}.Encode()

	env := call(t, s, http.MethodGet, "/labels/load"+query, nil)
	assert.Equal(t, "LABEL_NOT_FOUND", env.ErrorCode)

	// Older clients send a single scale and no matrix.
	env = call(t, s, http.MethodPost, "/labels/save", map[string]interface{}{
		"image_fixed":  "/imgs/a.png",
		"image_moving": "/imgs/b.png",
		"rigid":        map[string]float64{"theta_deg": 90, "tx": 5, "ty": -3, "scale": 2},
		"tie_points":   tiePoints(square()[:2], square()[:2]),
		"meta":         map[string]string{"comment": "first pass"},
	})
	require.Equal(t, "ok", env.Status, env.Message)
	assert.Equal(t, "Label saved", env.Message)

	var saved labels.SaveResult
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	assert.Equal(t, labels.ID("/imgs/a.png", "/imgs/b.png"), saved.LabelID)

	env = call(t, s, http.MethodGet, "/labels/load"+query, nil)
	require.Equal(t, "ok", env.Status, env.Message)

	var label labels.Label
	require.NoError(t, json.Unmarshal(env.Data, &label))
	assert.Equal(t, 2.0, label.Params.ScaleX)
	assert.InDelta(t, -2, label.Matrix[0][1], 1e-12)
	assert.Equal(t, "first pass", label.Meta.Comment)
	assert.Len(t, label.TiePoints, 2)

	env = call(t, s, http.MethodGet, "/labels/load?label_path="+url.QueryEscape(saved.LabelPath), nil)
	require.Equal(t, "ok", env.Status, env.Message)

	env = call(t, s, http.MethodGet, "/labels/list", nil)
	var items []labels.Item
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "/imgs/b.png", items[0].ImageMoving)

	env = call(t, s, http.MethodDelete, "/labels/delete"+query, nil)
	require.Equal(t, "ok", env.Status, env.Message)
	assert.JSONEq(t, `{"deleted":true}`, string(env.Data))

	env = call(t, s, http.MethodDelete, "/labels/delete"+query, nil)
	assert.JSONEq(t, `{"deleted":false}`, string(env.Data))

	env = call(t, s, http.MethodGet, "/labels/list", nil)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestSaveLabelDerivesParams(t *testing.T) {
	s, _ := newTestServer(t)
	m := transform.ParamsToMatrix(transform.UniformParams(-20, 1, 2, 1))

	env := call(t, s, http.MethodPost, "/labels/save", map[string]interface{}{
		"image_fixed":  "a.png",
		"image_moving": "b.png",
		"matrix_3x3":   m,
	})
	require.Equal(t, "ok", env.Status, env.Message)

	label, err := s.store.Load("a.png", "b.png")
	require.NoError(t, err)
	assert.InDelta(t, -20, label.Params.ThetaDeg, 1e-9)
	assert.Empty(t, label.TiePoints)
}

func TestSaveLabelInvalid(t *testing.T) {
	s, _ := newTestServer(t)

	env := call(t, s, http.MethodPost, "/labels/save", map[string]interface{}{
		"image_fixed": "a.png",
		"matrix_3x3":  geometry.Identity(),
	})
	assert.Equal(t, "INVALID_INPUT", env.ErrorCode, env.Message)

	env = call(t, s, http.MethodGet, "/labels/load?image_fixed=a.png", nil)
	assert.Equal(t, "INVALID_INPUT", env.ErrorCode)
}

func writeSolid(t *testing.T, path string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	require.NoError(t, imageio.SavePNG(path, img))
	return path
}

func TestCheckerboardEndpoint(t *testing.T) {
	s, dir := newTestServer(t)
	fixed := writeSolid(t, filepath.Join(dir, "fixed.png"), 32, 24, color.RGBA{R: 255, A: 255})
	moving := writeSolid(t, filepath.Join(dir, "moving.png"), 32, 24, color.RGBA{B: 255, A: 255})

	env := call(t, s, http.MethodPost, "/warp/checkerboard", map[string]interface{}{
		"image_fixed":       fixed,
		"image_moving":      moving,
		"matrix_3x3":        geometry.Identity(),
		"board_size":        4,
		"use_center_origin": true,
	})
	require.Equal(t, "ok", env.Status, env.Message)

	var out struct {
		ImageBase64 string `json:"image_base64"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 32, out.Width)
	assert.Equal(t, 24, out.Height)
	assert.NotEmpty(t, out.ImageBase64)

	env = call(t, s, http.MethodPost, "/warp/checkerboard", map[string]interface{}{
		"image_fixed":  fixed,
		"image_moving": moving,
		"matrix_3x3":   geometry.Identity(),
		"board_size":   1,
	})
	assert.Equal(t, "INVALID_INPUT", env.ErrorCode)

	env = call(t, s, http.MethodPost, "/warp/checkerboard", map[string]interface{}{
		"image_fixed":  fixed,
		"image_moving": filepath.Join(dir, "missing.png"),
		"matrix_3x3":   geometry.Identity(),
	})
	assert.Equal(t, "IO_ERROR", env.ErrorCode)

	env = call(t, s, http.MethodPost, "/warp/checkerboard", map[string]interface{}{
		"image_fixed":  fixed,
		"image_moving": moving,
		"matrix_3x3":   [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 1}},
	})
	assert.Equal(t, "SINGULAR_TRANSFORM", env.ErrorCode)

	env = call(t, s, http.MethodPost, "/warp/checkerboard", map[string]interface{}{
		"image_fixed":  fixed,
		"image_moving": filepath.Join(dir, "notes.txt"),
		"matrix_3x3":   geometry.Identity(),
	})
	assert.Equal(t, "INVALID_INPUT", env.ErrorCode)
}

func TestWarpPreviewEndpoint(t *testing.T) {
	s, dir := newTestServer(t)
	fixed := writeSolid(t, filepath.Join(dir, "fixed.png"), 20, 10, color.RGBA{R: 255, A: 255})
	moving := writeSolid(t, filepath.Join(dir, "moving.png"), 10, 10, color.RGBA{G: 255, A: 255})

	env := call(t, s, http.MethodPost, "/warp/preview", map[string]interface{}{
		"image_fixed":  fixed,
		"image_moving": moving,
		"rigid":        map[string]float64{"theta_deg": 0, "tx": 5, "ty": 0},
		"output_name":  "check",
	})
	require.Equal(t, "ok", env.Status, env.Message)

	var res warpResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, filepath.Join(s.cfg.Paths.TempRoot, "check.png"), res.PreviewPath)

	size, err := imageio.Size(res.PreviewPath)
	require.NoError(t, err)
	assert.Equal(t, geometry.NewSize(20, 10), size)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/compute/rigid", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/compute/rigid", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "SINGULAR_TRANSFORM", errorCode(transform.Errorf(transform.SingularTransform, "x")))
	assert.Equal(t, CodeInternal, errorCode(assert.AnError))
	assert.True(t, strings.HasPrefix(errorCode(labels.ErrNotFound), "LABEL"))
}
