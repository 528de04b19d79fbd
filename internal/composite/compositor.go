package composite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/forest-guardian/sentinel-prep/internal/log"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrGridMismatch = errors.New("band does not match the target grid")

// RasterInfo describes the first channel of a band file.
type RasterInfo struct {
	Width      int
	Height     int
	Transform  [6]float64
	Projection string
}

func (ri RasterInfo) Resolution() float64 {
	return math.Abs(ri.Transform[1])
}

// Grid is the common pixel grid every output band is brought onto.
type Grid struct {
	Width      int
	Height     int
	Transform  [6]float64
	Projection string
}

type Band struct {
	Spec BandSpec
	Path string
	Data []float32
}

// Source reads band files. ReadBand returns the first channel at exactly
// width x height pixels, resampling bilinearly when the native size differs.
type Source interface {
	Info(path string) (RasterInfo, error)
	ReadBand(path string, width, height int) ([]float32, error)
}

// Sink writes the stacked bands as one Float32 multi-band raster.
type Sink interface {
	WriteStack(path string, grid Grid, bands []Band) error
}

type Result struct {
	Grid  Grid
	Bands []Band
}

type Compositor struct {
	Source           Source
	Sink             Sink
	Layout           Layout
	TargetResolution float64
	Workers          int
}

func New(src Source, sink Sink, layout Layout, targetResolution float64) *Compositor {
	if len(layout) == 0 {
		layout = DefaultLayout
	}
	if targetResolution <= 0 {
		targetResolution = DefaultTargetResolution
	}
	return &Compositor{
		Source:           src,
		Sink:             sink,
		Layout:           layout,
		TargetResolution: targetResolution,
		Workers:          4,
	}
}

// Run discovers the layout's bands under root, brings them onto one grid and
// writes the stack to out.
func (c *Compositor) Run(ctx context.Context, root, out string) (*Result, error) {
	start := time.Now()
	if err := c.Layout.Validate(); err != nil {
		return nil, err
	}
	paths, err := Discover(root, c.Layout)
	if err != nil {
		return nil, err
	}
	res, err := c.Stack(ctx, paths)
	if err != nil {
		return nil, err
	}
	if err := c.Sink.WriteStack(out, res.Grid, res.Bands); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("composite written",
		zap.String("file", out),
		zap.Int("bands", len(res.Bands)),
		zap.Int("width", res.Grid.Width),
		zap.Int("height", res.Grid.Height),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// Stack reads paths (one per layout band, in layout order) onto the target grid.
func (c *Compositor) Stack(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) != len(c.Layout) {
		return nil, fmt.Errorf("got %d band files for %d declared bands", len(paths), len(c.Layout))
	}
	infos := make([]RasterInfo, len(paths))
	for i, p := range paths {
		info, err := c.Source.Info(p)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", p, err)
		}
		infos[i] = info
	}
	grid := c.targetGrid(infos)

	for i, info := range infos {
		if !c.native(info) {
			continue
		}
		if info.Width != grid.Width || info.Height != grid.Height {
			return nil, fmt.Errorf("%w: %s is %dx%d, grid is %dx%d",
				ErrGridMismatch, c.Layout[i].Name, info.Width, info.Height, grid.Width, grid.Height)
		}
	}

	bands := make([]Band, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if c.Workers > 0 {
		g.SetLimit(c.Workers)
	}
	for i := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			spec, path, info := c.Layout[i], paths[i], infos[i]
			if !c.native(info) {
				log.Info("resampling band",
					zap.String("band", spec.Name),
					zap.Float64("from", info.Resolution()),
					zap.Float64("to", c.TargetResolution))
			}
			data, err := c.Source.ReadBand(path, grid.Width, grid.Height)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if len(data) != grid.Width*grid.Height {
				return fmt.Errorf("%w: %s returned %d pixels, want %d",
					ErrGridMismatch, spec.Name, len(data), grid.Width*grid.Height)
			}
			bands[i] = Band{Spec: spec, Path: path, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Result{Grid: grid, Bands: bands}, nil
}

func (c *Compositor) native(info RasterInfo) bool {
	return math.Abs(info.Resolution()-c.TargetResolution) < 1e-9*c.TargetResolution
}

// targetGrid is the grid of the first native-resolution band in layout order,
// or the first band rescaled when none is native.
func (c *Compositor) targetGrid(infos []RasterInfo) Grid {
	for _, info := range infos {
		if c.native(info) {
			return Grid{Width: info.Width, Height: info.Height, Transform: info.Transform, Projection: info.Projection}
		}
	}
	first := infos[0]
	scale := first.Resolution() / c.TargetResolution
	w := int(float64(first.Width) * scale)
	h := int(float64(first.Height) * scale)
	w, h = max(w, 1), max(h, 1)
	gt := first.Transform
	gt[1] *= float64(first.Width) / float64(w)
	gt[2] *= float64(first.Height) / float64(h)
	gt[4] *= float64(first.Width) / float64(w)
	gt[5] *= float64(first.Height) / float64(h)
	return Grid{Width: w, Height: h, Transform: gt, Projection: first.Projection}
}
