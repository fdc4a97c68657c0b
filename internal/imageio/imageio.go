// Package imageio reads and writes the images a label refers to.
package imageio

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// Error records a failed image operation and the file it was on.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to %s image %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Load decodes the image file at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, &Error{Op: "decode", Path: path, Err: err}
	}
	return img, nil
}

// Size returns the dimensions of the image at path without decoding the pixels.
func Size(path string) (geometry.Size, error) {
	file, err := os.Open(path)
	if err != nil {
		return geometry.Size{}, &Error{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return geometry.Size{}, &Error{Op: "read header of", Path: path, Err: err}
	}
	return geometry.NewSize(cfg.Width, cfg.Height), nil
}

// SizeOf returns the dimensions of a decoded image.
func SizeOf(img image.Image) geometry.Size {
	b := img.Bounds()
	return geometry.NewSize(b.Dx(), b.Dy())
}

// SavePNG encodes img as PNG at path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &Error{Op: "create directory for", Path: path, Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return &Error{Op: "create", Path: path, Err: err}
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return &Error{Op: "encode", Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	return nil
}

// SupportedFormats returns the list of supported image file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp"}
}

// IsSupportedFormat checks if a file has a supported image extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range SupportedFormats() {
		if ext == f {
			return true
		}
	}
	return false
}
