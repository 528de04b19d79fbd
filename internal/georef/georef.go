package georef

import (
	"context"
	"fmt"

	"github.com/forest-guardian/sentinel-prep/internal/log"
	"go.uber.org/zap"
)

// Method selects how the transform is derived from the GCPs.
type Method string

const (
	MethodEndpoints    Method = "endpoints"
	MethodLeastSquares Method = "least-squares"

	DefaultEPSG = 4326
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodEndpoints, "":
		return MethodEndpoints, nil
	case MethodLeastSquares:
		return MethodLeastSquares, nil
	}
	return "", fmt.Errorf("unknown georeferencing method %q", s)
}

// Dataset is a raster opened for update.
type Dataset interface {
	GCPs() []GCP
	// FitGCPs derives all six coefficients from the GCPs by least squares.
	FitGCPs(gcps []GCP) (Geotransform, error)
	SetGeoTransform(gt Geotransform) error
	SetEPSG(code int) error
	Close() error
}

// Opener opens a raster for update.
type Opener func(path string) (Dataset, error)

type Georeferencer struct {
	Open   Opener
	Method Method
	EPSG   int
}

func New(open Opener, method Method, epsg int) *Georeferencer {
	if epsg == 0 {
		epsg = DefaultEPSG
	}
	if method == "" {
		method = MethodEndpoints
	}
	return &Georeferencer{Open: open, Method: method, EPSG: epsg}
}

// Run computes the transform from the file's GCPs and writes it back together
// with the configured CRS. Nothing is written when the computation fails.
func (g *Georeferencer) Run(ctx context.Context, path string) (gt Geotransform, err error) {
	if err = ctx.Err(); err != nil {
		return gt, err
	}
	ds, err := g.Open(path)
	if err != nil {
		return gt, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	gcps := ds.GCPs()
	log.Info("read ground control points", zap.String("file", path), zap.Int("gcps", len(gcps)))

	switch g.Method {
	case MethodLeastSquares:
		gt, err = fit(ds, gcps)
	default:
		gt, err = AffineFromGCPs(gcps)
	}
	if err != nil {
		return gt, fmt.Errorf("%s: %w", path, err)
	}
	log.Info("calculated geotransform", zap.String("method", string(g.Method)), zap.Stringer("geotransform", gt))

	if err = ds.SetGeoTransform(gt); err != nil {
		return gt, fmt.Errorf("set geotransform: %w", err)
	}
	if err = ds.SetEPSG(g.EPSG); err != nil {
		return gt, fmt.Errorf("set crs EPSG:%d: %w", g.EPSG, err)
	}
	log.Info("updated raster with crs and geotransform", zap.String("file", path), zap.Int("epsg", g.EPSG))
	return gt, nil
}

func fit(ds Dataset, gcps []GCP) (Geotransform, error) {
	if len(gcps) == 0 {
		return Geotransform{}, ErrNoGCPs
	}
	gt, err := ds.FitGCPs(gcps)
	if err != nil {
		return Geotransform{}, fmt.Errorf("%w: %v", ErrDegenerateGCPs, err)
	}
	return gt, nil
}
