// Package preview renders alignment previews: the moving image warped into
// the fixed image frame and checkerboard composites of both.
package preview

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// Warp resamples moving into a frame of fixedSize using bilinear
// interpolation. m maps moving pixel coordinates to fixed pixel
// coordinates in the given origin convention. Output pixels that map
// outside the moving image are left transparent black.
//
// Center-origin matrices are moved to the corner origin by an exact
// ((W-1)/2, (H-1)/2) shift, so previews can differ by up to half a pixel at
// the edges from renderers that normalize by W/2 and sample with aligned
// corners.
func Warp(moving image.Image, m geometry.Matrix3, fixedSize geometry.Size, origin transform.Origin) (*image.RGBA, error) {
	if !m.IsAffine() || !m.IsFinite() {
		return nil, transform.Errorf(transform.InvalidInput, "matrix must be a finite affine transform")
	}
	if _, ok := m.Inverse(); !ok {
		return nil, transform.Errorf(transform.SingularTransform, "matrix is not invertible")
	}

	bounds := moving.Bounds()
	corner, err := transform.Reorigin(m, fixedSize, geometry.NewSize(bounds.Dx(), bounds.Dy()), origin, transform.OriginCorner)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, fixedSize.Width, fixedSize.Height))
	draw.BiLinear.Transform(dst, drawMatrix(corner, bounds.Min).Aff3(), moving, bounds, draw.Src, nil)
	return dst, nil
}

// drawMatrix converts a corner-origin matrix, where pixel i is centered on
// i, to the convention of x/image/draw, where pixel i spans [i, i+1) and
// the source image starts at min.
func drawMatrix(corner geometry.Matrix3, min image.Point) geometry.Matrix3 {
	return geometry.Translation(0.5, 0.5).
		Mul(corner).
		Mul(geometry.Translation(-0.5-float64(min.X), -0.5-float64(min.Y)))
}
