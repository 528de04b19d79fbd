package earthengine

import (
	"errors"
	"fmt"
	"os"

	"github.com/forest-guardian/sentinel-prep/internal/points"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrNoAOI               = errors.New("area of interest is not set")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// LoadAOI returns the geometry of the first feature of a GeoJSON feature collection.
func LoadAOI(path string) (orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoAOI)
	}
	return fc.Features[0].Geometry, nil
}

func geometryCoordinates(g orb.Geometry) any {
	switch g := g.(type) {
	case nil:
		return nil
	case orb.Bound:
		return g.ToPolygon()
	default:
		return g
	}
}

// Geometry encodes g as a server-side geometry constructor.
func Geometry(g orb.Geometry) (*Value, error) {
	switch g := g.(type) {
	case nil:
		return nil, ErrNoAOI
	case orb.Point:
		return Call("GeometryConstructors.Point", Args{"coordinates": Const(g)}), nil
	case orb.Polygon:
		return Call("GeometryConstructors.Polygon", Args{"coordinates": Const(g)}), nil
	case orb.MultiPolygon:
		return Call("GeometryConstructors.MultiPolygon", Args{"coordinates": Const(g)}), nil
	case orb.Bound:
		return Call("GeometryConstructors.Polygon", Args{"coordinates": Const(g.ToPolygon())}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

// FeatureCollection encodes points as features carrying their index and coordinates.
func FeatureCollection(pts []points.Point) *Value {
	features := make([]*Value, len(pts))
	for i, p := range pts {
		features[i] = Call("Feature", Args{
			"geometry": Call("GeometryConstructors.Point", Args{"coordinates": Const(p.Orb())}),
			"metadata": Const(map[string]any{
				"index":     p.Index,
				"Longitude": p.Longitude,
				"Latitude":  p.Latitude,
			}),
		})
	}
	return Call("Collection", Args{"features": Array(features...)})
}
