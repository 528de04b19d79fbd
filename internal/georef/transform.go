package georef

import (
	"errors"
	"fmt"
)

var (
	ErrNoGCPs         = errors.New("no ground control points found")
	ErrDegenerateGCPs = errors.New("ground control points do not span both image axes")
)

// GCP maps a pixel/line position to a map coordinate.
type GCP struct {
	ID    string
	Pixel float64
	Line  float64
	X     float64
	Y     float64
	Z     float64
}

// Geotransform holds GDAL-ordered affine coefficients:
// originX, pixelWidth, rowRotation, originY, colRotation, pixelHeight.
type Geotransform [6]float64

func (gt Geotransform) PixelWidth() float64  { return gt[1] }
func (gt Geotransform) PixelHeight() float64 { return gt[5] }

// Apply maps a pixel/line position to map coordinates.
func (gt Geotransform) Apply(pixel, line float64) (x, y float64) {
	x = gt[0] + pixel*gt[1] + line*gt[2]
	y = gt[3] + pixel*gt[4] + line*gt[5]
	return x, y
}

func (gt Geotransform) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g, %g, %g)", gt[0], gt[1], gt[2], gt[3], gt[4], gt[5])
}

// AffineFromGCPs derives a north-up transform from the first and last GCP only.
// The origin is the first GCP's map coordinate, not extrapolated to pixel 0.
func AffineFromGCPs(gcps []GCP) (Geotransform, error) {
	if len(gcps) == 0 {
		return Geotransform{}, ErrNoGCPs
	}
	first, last := gcps[0], gcps[len(gcps)-1]

	dCol := last.Pixel - first.Pixel
	dRow := last.Line - first.Line
	if dCol == 0 || dRow == 0 {
		return Geotransform{}, fmt.Errorf("%w: first and last share a pixel or line index", ErrDegenerateGCPs)
	}

	pixelWidth := (last.X - first.X) / dCol
	pixelHeight := (last.Y - first.Y) / dRow

	return Geotransform{first.X, pixelWidth, 0, first.Y, 0, pixelHeight}, nil
}
