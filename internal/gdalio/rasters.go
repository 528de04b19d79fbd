package gdalio

import (
	"fmt"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/sentinel-prep/internal/composite"
	"github.com/forest-guardian/sentinel-prep/internal/log"
	"go.uber.org/zap"
)

// Rasters reads band files and writes composites through GDAL.
type Rasters struct {
	// CreationOptions are passed to the GTiff driver, e.g. COMPRESS=DEFLATE.
	CreationOptions []string
}

var _ composite.Source = Rasters{}
var _ composite.Sink = Rasters{}

func (Rasters) Info(path string) (composite.RasterInfo, error) {
	ds, err := godal.Open(path, godal.RasterOnly(), godal.ErrLogger(quiet(path)))
	if err != nil {
		return composite.RasterInfo{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < 1 {
		return composite.RasterInfo{}, fmt.Errorf("%s has no bands", path)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return composite.RasterInfo{}, fmt.Errorf("%s geotransform: %w", path, err)
	}
	return composite.RasterInfo{
		Width:      st.SizeX,
		Height:     st.SizeY,
		Transform:  gt,
		Projection: ds.Projection(),
	}, nil
}

// ReadBand reads the first band of path at width x height, bilinearly
// resampled in memory when the file has another size.
func (Rasters) ReadBand(path string, width, height int) ([]float32, error) {
	ds, err := godal.Open(path, godal.RasterOnly(), godal.ErrLogger(quiet(path)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	src := ds
	st := ds.Structure()
	if st.SizeX != width || st.SizeY != height {
		src, err = ds.Translate("", []string{
			"-b", "1",
			"-ot", "Float32",
			"-outsize", strconv.Itoa(width), strconv.Itoa(height),
			"-r", "bilinear",
		}, godal.Memory, godal.ErrLogger(quiet(path)))
		if err != nil {
			return nil, fmt.Errorf("resample %s: %w", path, err)
		}
		defer src.Close()
		log.Debug("band resampled",
			zap.String("file", path),
			zap.Int("fromWidth", st.SizeX), zap.Int("fromHeight", st.SizeY),
			zap.Int("width", width), zap.Int("height", height))
	}

	data := make([]float32, width*height)
	if err := src.Bands()[0].Read(0, 0, data, width, height); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteStack creates a Float32 GeoTIFF with one band per input, in order, and
// names each band after its layout entry.
func (r Rasters) WriteStack(path string, grid composite.Grid, bands []composite.Band) error {
	opts := append([]string{"TILED=YES"}, r.CreationOptions...)
	ds, err := godal.Create(godal.GTiff, path, len(bands), godal.Float32, grid.Width, grid.Height,
		godal.CreationOption(opts...), godal.ErrLogger(quiet(path)))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := ds.SetGeoTransform(grid.Transform); err != nil {
		ds.Close()
		return fmt.Errorf("%s geotransform: %w", path, err)
	}
	if grid.Projection != "" {
		if err := ds.SetProjection(grid.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("%s projection: %w", path, err)
		}
	}
	out := ds.Bands()
	for i, b := range bands {
		if err := out[i].Write(0, 0, b.Data, grid.Width, grid.Height); err != nil {
			ds.Close()
			return fmt.Errorf("write band %s: %w", b.Spec.Name, err)
		}
		if err := out[i].SetDescription(b.Spec.Name); err != nil {
			ds.Close()
			return fmt.Errorf("name band %d: %w", i+1, err)
		}
	}
	return ds.Close()
}
