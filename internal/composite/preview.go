package composite

import (
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"
)

// PreviewOptions stretch three bands into an 8-bit RGB quicklook.
type PreviewOptions struct {
	Red, Green, Blue string
	Min, Max         float64
	Gamma            float64
}

// DefaultPreview matches the true-color visualisation used for Sentinel-2 checks.
var DefaultPreview = PreviewOptions{Red: "B04", Green: "B03", Blue: "B02", Min: 0, Max: 2500, Gamma: 1.1}

// WritePreview renders the result as PNG.
func WritePreview(w io.Writer, res *Result, opts PreviewOptions) error {
	dc, err := renderPreview(res, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// SavePreview renders the result to a PNG file.
func SavePreview(path string, res *Result, opts PreviewOptions) error {
	dc, err := renderPreview(res, opts)
	if err != nil {
		return err
	}
	return dc.SavePNG(path)
}

func renderPreview(res *Result, opts PreviewOptions) (*gg.Context, error) {
	if opts.Max <= opts.Min {
		return nil, fmt.Errorf("preview stretch max %g must exceed min %g", opts.Max, opts.Min)
	}
	if opts.Gamma <= 0 {
		opts.Gamma = 1
	}
	channels := make([][]float32, 3)
	for i, name := range []string{opts.Red, opts.Green, opts.Blue} {
		idx := bandIndex(res.Bands, name)
		if idx < 0 {
			return nil, fmt.Errorf("preview band %s is not part of the composite", name)
		}
		channels[i] = res.Bands[idx].Data
	}

	width, height := res.Grid.Width, res.Grid.Height
	dc := gg.NewContext(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			dc.SetRGB(
				stretch(channels[0][i], opts),
				stretch(channels[1][i], opts),
				stretch(channels[2][i], opts),
			)
			dc.SetPixel(x, y)
		}
	}
	return dc, nil
}

func stretch(v float32, opts PreviewOptions) float64 {
	f := (float64(v) - opts.Min) / (opts.Max - opts.Min)
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 1 {
		return 1
	}
	return math.Pow(f, 1/opts.Gamma)
}

func bandIndex(bands []Band, name string) int {
	for i, b := range bands {
		if b.Spec.Name == name {
			return i
		}
	}
	return -1
}
