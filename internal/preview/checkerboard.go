package preview

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/hytous/RigidLabeler/internal/transform"
)

const (
	MinBoardSize     = 2
	MaxBoardSize     = 64
	DefaultBoardSize = 8
)

// Checkerboard interleaves fixed and warped in a boardSize x boardSize grid.
// Cell (i, j) shows fixed when i+j is even and warped otherwise. The last
// row and column of cells absorb any remainder. Both images must have the
// same size. Transparent areas render black.
func Checkerboard(fixed, warped image.Image, boardSize int) (*image.RGBA, error) {
	if boardSize < MinBoardSize || boardSize > MaxBoardSize {
		return nil, transform.Errorf(transform.InvalidInput,
			"board size must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, boardSize)
	}
	fb, wb := fixed.Bounds(), warped.Bounds()
	if fb.Dx() != wb.Dx() || fb.Dy() != wb.Dy() {
		return nil, transform.Errorf(transform.InvalidInput,
			"image size mismatch: fixed=%dx%d, warped=%dx%d", fb.Dx(), fb.Dy(), wb.Dx(), wb.Dy())
	}

	w, h := fb.Dx(), fb.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	cellW, cellH := w/boardSize, h/boardSize
	for i := 0; i < boardSize; i++ {
		y0, y1 := i*cellH, (i+1)*cellH
		if i == boardSize-1 {
			y1 = h
		}
		for j := 0; j < boardSize; j++ {
			x0, x1 := j*cellW, (j+1)*cellW
			if j == boardSize-1 {
				x1 = w
			}

			cell := image.Rect(x0, y0, x1, y1)
			if cell.Empty() {
				continue
			}
			src, origin := warped, wb.Min
			if (i+j)%2 == 0 {
				src, origin = fixed, fb.Min
			}
			draw.Draw(out, cell, src, origin.Add(cell.Min), draw.Over)
		}
	}
	return out, nil
}
