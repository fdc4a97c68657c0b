package transform

import (
	"strings"

	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// Origin is the pixel coordinate convention a matrix was computed in.
type Origin int

const (
	// OriginCorner puts (0, 0) on the center of the top-left pixel.
	OriginCorner Origin = iota
	// OriginCenter puts (0, 0) on the image center.
	OriginCenter
)

// ParseOrigin parses "corner" or "center", ignoring case.
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "corner", "top-left", "topleft":
		return OriginCorner, nil
	case "center", "centre":
		return OriginCenter, nil
	}
	return 0, newError(InvalidInput, "unknown origin %q, use 'corner' or 'center'", s)
}

func (o Origin) String() string {
	if o == OriginCenter {
		return "center"
	}
	return "corner"
}

// normalizedToPixel returns the matrix mapping normalized [-1, 1]
// coordinates of an image of the given size to its pixel coordinates.
//
// Center origin scales by half the extent. Corner origin follows the
// align-corners convention: -1 and 1 land on the centers of the first and
// last pixel, which needs at least two pixels per axis.
func normalizedToPixel(size geometry.Size, origin Origin) (geometry.Matrix3, error) {
	if !size.IsPositive() {
		return geometry.Matrix3{}, newError(InvalidInput, "image size must be positive, got %s", size)
	}

	w, h := float64(size.Width), float64(size.Height)
	switch origin {
	case OriginCenter:
		return geometry.Scaling(w/2, h/2), nil
	case OriginCorner:
		if size.Width < 2 || size.Height < 2 {
			return geometry.Matrix3{}, newError(InvalidInput,
				"corner-origin normalization needs at least 2 pixels per axis, got %s", size)
		}
		hw, hh := (w-1)/2, (h-1)/2
		return geometry.Affine(
			hw, 0, hw,
			0, hh, hh,
		), nil
	}
	return geometry.Matrix3{}, newError(InvalidInput, "unknown origin %d", int(origin))
}

// ToNormalized rewrites a pixel-space matrix (moving -> fixed) into the
// normalized space where each image spans [-1, 1] on both axes:
//
//	M_norm = S_fixed^-1 * M_pixel * S_moving
func ToNormalized(m geometry.Matrix3, fixed, moving geometry.Size, origin Origin) (geometry.Matrix3, error) {
	sFixed, err := normalizedToPixel(fixed, origin)
	if err != nil {
		return geometry.Matrix3{}, err
	}
	sMoving, err := normalizedToPixel(moving, origin)
	if err != nil {
		return geometry.Matrix3{}, err
	}

	inv, ok := sFixed.Inverse()
	if !ok {
		return geometry.Matrix3{}, newError(InvalidInput, "fixed image size %s is degenerate", fixed)
	}
	return inv.Mul(m).Mul(sMoving), nil
}

// ToPixel is the inverse of ToNormalized:
//
//	M_pixel = S_fixed * M_norm * S_moving^-1
func ToPixel(m geometry.Matrix3, fixed, moving geometry.Size, origin Origin) (geometry.Matrix3, error) {
	sFixed, err := normalizedToPixel(fixed, origin)
	if err != nil {
		return geometry.Matrix3{}, err
	}
	sMoving, err := normalizedToPixel(moving, origin)
	if err != nil {
		return geometry.Matrix3{}, err
	}

	inv, ok := sMoving.Inverse()
	if !ok {
		return geometry.Matrix3{}, newError(InvalidInput, "moving image size %s is degenerate", moving)
	}
	return sFixed.Mul(m).Mul(inv), nil
}

// centerToCorner maps center-origin pixel coordinates of an image to
// corner-origin ones. The center origin sits on the middle of the pixel
// grid, so pixel i has center coordinate i - (W-1)/2.
func centerToCorner(size geometry.Size) (geometry.Matrix3, error) {
	if !size.IsPositive() {
		return geometry.Matrix3{}, newError(InvalidInput, "image size must be positive, got %s", size)
	}
	return geometry.Translation(float64(size.Width-1)/2, float64(size.Height-1)/2), nil
}

// Reorigin rewrites a pixel-space matrix (moving -> fixed) from one origin
// convention to the other.
func Reorigin(m geometry.Matrix3, fixed, moving geometry.Size, from, to Origin) (geometry.Matrix3, error) {
	tFixed, err := centerToCorner(fixed)
	if err != nil {
		return geometry.Matrix3{}, err
	}
	tMoving, err := centerToCorner(moving)
	if err != nil {
		return geometry.Matrix3{}, err
	}

	switch {
	case from == to:
		return m, nil
	case from == OriginCenter && to == OriginCorner:
		inv, _ := tMoving.Inverse()
		return tFixed.Mul(m).Mul(inv), nil
	case from == OriginCorner && to == OriginCenter:
		inv, _ := tFixed.Inverse()
		return inv.Mul(m).Mul(tMoving), nil
	}
	return geometry.Matrix3{}, newError(InvalidInput, "unknown origin conversion %s -> %s", from, to)
}
