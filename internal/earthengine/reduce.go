package earthengine

import (
	"context"
	"fmt"

	"github.com/forest-guardian/sentinel-prep/internal/points"
	"github.com/forest-guardian/sentinel-prep/internal/table"
	"github.com/paulmach/orb/geojson"
)

// Extractor reduces point batches against the combined VV, VH and NDVI image.
type Extractor struct {
	Session *Session
	Params  Params
}

func NewExtractor(s *Session, p Params) *Extractor {
	return &Extractor{Session: s, Params: p}
}

// Key identifies the image products, for caching batch results.
func (e *Extractor) Key() string {
	return e.Params.Key()
}

// Expression builds the mean reduction of the combined image over pts.
func (e *Extractor) Expression(pts []points.Point) (Expression, error) {
	g := NewGraph()
	img, err := Combined(g, e.Params)
	if err != nil {
		return Expression{}, err
	}
	reduced := Call("Image.reduceRegions", Args{
		"image":      img,
		"collection": FeatureCollection(pts),
		"reducer":    Call("Reducer.mean", nil),
		"scale":      Const(e.Params.Scale),
		"tileScale":  Const(e.Params.TileScale),
	})
	return g.Expression(reduced), nil
}

// Reduce returns one row per reduced feature. Bands without data at a point
// come back as missing values.
func (e *Extractor) Reduce(ctx context.Context, pts []points.Point) ([]table.Row, error) {
	expr, err := e.Expression(pts)
	if err != nil {
		return nil, err
	}
	features, err := e.Session.ComputeFeatures(ctx, expr)
	if err != nil {
		return nil, err
	}
	rows := make([]table.Row, 0, len(features))
	for _, f := range features {
		row, err := rowFromFeature(f)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowFromFeature(f *geojson.Feature) (table.Row, error) {
	index, ok := number(f.Properties, "index")
	if !ok {
		return table.Row{}, fmt.Errorf("feature %v has no index", f.ID)
	}
	lon, _ := number(f.Properties, "Longitude")
	lat, _ := number(f.Properties, "Latitude")
	return table.Row{
		Index:     int(index),
		Longitude: lon,
		Latitude:  lat,
		VV:        value(f.Properties, "VV"),
		VH:        value(f.Properties, "VH"),
		NDVI:      value(f.Properties, "NDVI"),
	}, nil
}

func number(props geojson.Properties, key string) (float64, bool) {
	f, ok := props[key].(float64)
	return f, ok
}

func value(props geojson.Properties, key string) table.Value {
	if f, ok := number(props, key); ok {
		return table.Some(f)
	}
	return table.Value{}
}
