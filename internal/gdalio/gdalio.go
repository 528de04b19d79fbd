// Package gdalio binds the georeferencing and compositing pipelines to GDAL.
package gdalio

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/sentinel-prep/internal/georef"
	"github.com/forest-guardian/sentinel-prep/internal/log"
	"go.uber.org/zap"
)

// quiet drops GDAL warnings to the debug log and keeps failures as errors.
func quiet(path string) godal.ErrorHandler {
	return func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			log.Debug("gdal warning", zap.String("file", path), zap.Int("code", code), zap.String("msg", msg))
			return nil
		}
		return fmt.Errorf("gdal: %s", msg)
	}
}

func toGeoref(gcps []godal.GCP) []georef.GCP {
	out := make([]georef.GCP, 0, len(gcps))
	for _, g := range gcps {
		out = append(out, georef.GCP{ID: g.PszId, Pixel: g.DfGCPPixel, Line: g.DfGCPLine, X: g.DfGCPX, Y: g.DfGCPY, Z: g.DfGCPZ})
	}
	return out
}

func toGodal(gcps []georef.GCP) []godal.GCP {
	out := make([]godal.GCP, 0, len(gcps))
	for _, g := range gcps {
		out = append(out, godal.GCP{PszId: g.ID, DfGCPPixel: g.Pixel, DfGCPLine: g.Line, DfGCPX: g.X, DfGCPY: g.Y, DfGCPZ: g.Z})
	}
	return out
}

// Scene is a raster opened in update mode so its georeferencing can be rewritten.
type Scene struct {
	path string
	ds   *godal.Dataset
	gcps []georef.GCP
}

// OpenScene satisfies georef.Opener.
func OpenScene(path string) (georef.Dataset, error) {
	ds, err := godal.Open(path, godal.Update(), godal.RasterOnly(), godal.ErrLogger(quiet(path)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Scene{path: path, ds: ds, gcps: toGeoref(ds.GCPs())}, nil
}

func (s *Scene) GCPs() []georef.GCP { return s.gcps }

// FitGCPs is GDAL's least-squares affine fit over every GCP.
func (s *Scene) FitGCPs(gcps []georef.GCP) (georef.Geotransform, error) {
	gt, err := godal.GCPsToGeoTransform(toGodal(gcps), godal.ErrLogger(quiet(s.path)))
	if err != nil {
		return georef.Geotransform{}, err
	}
	return georef.Geotransform(gt), nil
}

func (s *Scene) SetGeoTransform(gt georef.Geotransform) error {
	return s.ds.SetGeoTransform([6]float64(gt))
}

func (s *Scene) SetEPSG(code int) error {
	sr, err := godal.NewSpatialRefFromEPSG(code)
	if err != nil {
		return fmt.Errorf("epsg:%d: %w", code, err)
	}
	defer sr.Close()
	return s.ds.SetSpatialRef(sr)
}

func (s *Scene) Close() error {
	return s.ds.Close()
}
