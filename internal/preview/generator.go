package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hytous/RigidLabeler/internal/imageio"
	"github.com/hytous/RigidLabeler/internal/logging"
	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// Request describes one preview of an image pair.
type Request struct {
	FixedPath  string
	MovingPath string
	Matrix     geometry.Matrix3
	Origin     transform.Origin
	// BoardSize of zero selects the generator default.
	BoardSize int
}

// Output is an encoded checkerboard preview.
type Output struct {
	ImageBase64 string `json:"image_base64"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Generator renders previews from image files.
type Generator struct {
	// TempRoot receives files written by WarpPreview.
	TempRoot  string
	BoardSize int
}

func NewGenerator(tempRoot string, boardSize int) *Generator {
	if boardSize == 0 {
		boardSize = DefaultBoardSize
	}
	return &Generator{TempRoot: tempRoot, BoardSize: boardSize}
}

// Checkerboard loads both images, warps the moving one into the fixed frame
// and returns the composite as a base64-encoded PNG.
func (g *Generator) Checkerboard(ctx context.Context, req Request) (Output, error) {
	boardSize := req.BoardSize
	if boardSize == 0 {
		boardSize = g.BoardSize
	}

	fixed, moving, err := loadPair(ctx, req.FixedPath, req.MovingPath)
	if err != nil {
		return Output{}, err
	}

	size := imageio.SizeOf(fixed)
	warped, err := Warp(moving, req.Matrix, size, req.Origin)
	if err != nil {
		return Output{}, err
	}
	board, err := Checkerboard(fixed, warped, boardSize)
	if err != nil {
		return Output{}, err
	}

	encoded, err := EncodeBase64PNG(board)
	if err != nil {
		return Output{}, err
	}
	logging.Debug("checkerboard %s vs %s: %s, %d cells", req.FixedPath, req.MovingPath, size, boardSize)

	return Output{ImageBase64: encoded, Width: size.Width, Height: size.Height}, nil
}

// WarpToFile writes the moving image warped into the fixed frame as a PNG.
func (g *Generator) WarpToFile(ctx context.Context, req Request, outPath string) error {
	var (
		size   geometry.Size
		moving image.Image
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		size, err = imageio.Size(req.FixedPath)
		return err
	})
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		moving, err = imageio.Load(req.MovingPath)
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	warped, err := Warp(moving, req.Matrix, size, req.Origin)
	if err != nil {
		return err
	}
	return imageio.SavePNG(outPath, warped)
}

// WarpPreview writes the warped moving image into TempRoot and returns its
// path. An empty name becomes preview_{fixed}_{moving}.png.
func (g *Generator) WarpPreview(ctx context.Context, req Request, name string) (string, error) {
	name, err := previewName(name, req.FixedPath, req.MovingPath)
	if err != nil {
		return "", err
	}
	path := filepath.Join(g.TempRoot, name)
	if err := g.WarpToFile(ctx, req, path); err != nil {
		return "", err
	}
	return path, nil
}

func previewName(name, fixedPath, movingPath string) (string, error) {
	if name == "" {
		return "preview_" + baseStem(fixedPath) + "_" + baseStem(movingPath) + ".png", nil
	}
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", transform.Errorf(transform.InvalidInput, "invalid output name %q", name)
	}
	if strings.ToLower(filepath.Ext(name)) != ".png" {
		name += ".png"
	}
	return name, nil
}

func baseStem(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// loadPair decodes the fixed and moving images concurrently.
func loadPair(ctx context.Context, fixedPath, movingPath string) (fixed, moving image.Image, err error) {
	eg, ctx := errgroup.WithContext(ctx)
	load := func(path string, dst *image.Image) func() error {
		return func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := imageio.Load(path)
			if err != nil {
				return err
			}
			*dst = img
			return nil
		}
	}
	eg.Go(load(fixedPath, &fixed))
	eg.Go(load(movingPath, &moving))
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return fixed, moving, nil
}

// EncodeBase64PNG encodes img as PNG and returns it base64-encoded.
func EncodeBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "failed to encode preview")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
