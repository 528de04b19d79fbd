package earthengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forest-guardian/sentinel-prep/internal/points"
	"github.com/forest-guardian/sentinel-prep/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractorReduce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req computeRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			result := req.Expression.Values[req.Expression.Result]
			assert.Equal(t, "Image.reduceRegions", result.Invocation.FunctionName)
			features := result.Invocation.Arguments["collection"].Invocation.Arguments["features"].Array.Values
			assert.Len(t, features, 2)
		}

		w.Write([]byte(`{"type": "FeatureCollection", "features": [` +
			feature(4, `, "Longitude": 76.9, "Latitude": 13.3, "VV": 0.12, "VH": 0.03, "NDVI": 0.55`) + `,` +
			feature(5, `, "Longitude": 77.0, "Latitude": 13.4, "VV": 0.1, "VH": 0.02, "NDVI": null`) + `]}`))
	}))
	defer srv.Close()

	e := NewExtractor(NewSessionWithClient(srv.Client(), "sample-project", srv.URL), testParams())
	rows, err := e.Reduce(context.Background(), []points.Point{
		{Index: 4, Longitude: 76.9, Latitude: 13.3},
		{Index: 5, Longitude: 77.0, Latitude: 13.4},
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Row{
		{Index: 4, Longitude: 76.9, Latitude: 13.3, VV: table.Some(0.12), VH: table.Some(0.03), NDVI: table.Some(0.55)},
		{Index: 5, Longitude: 77.0, Latitude: 13.4, VV: table.Some(0.1), VH: table.Some(0.02)},
	}, rows)
}

func TestExtractorRejectsFeatureWithoutIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type": "FeatureCollection", "features": [{"type": "Feature", "geometry": null, "properties": {}}]}`))
	}))
	defer srv.Close()

	e := NewExtractor(NewSessionWithClient(srv.Client(), "sample-project", srv.URL), testParams())
	_, err := e.Reduce(context.Background(), []points.Point{{Index: 0}})
	assert.ErrorContains(t, err, "no index")
}
