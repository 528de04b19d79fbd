package earthengine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feature(index int, props string) string {
	return `{"type": "Feature", "geometry": {"type": "Point", "coordinates": [76.9, 13.3]},
		"properties": {"index": ` + strconv.Itoa(index) + props + `}}`
}

func TestComputeFeaturesFollowsPages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req computeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0", req.Expression.Result)
		switch req.PageToken {
		case "":
			w.Write([]byte(`{"type": "FeatureCollection", "features": [` + feature(0, "") + `], "nextPageToken": "p2"}`))
		case "p2":
			w.Write([]byte(`{"type": "FeatureCollection", "features": [` + feature(1, "") + `,` + feature(2, "") + `]}`))
		default:
			t.Errorf("unexpected token %q", req.PageToken)
		}
	}))
	defer srv.Close()

	s := NewSessionWithClient(srv.Client(), "sample-project", srv.URL)
	features, err := s.ComputeFeatures(context.Background(), NewGraph().Expression(Const(1)))
	require.NoError(t, err)
	assert.Len(t, features, 3)
	assert.EqualValues(t, 2, calls.Load())
}

func TestComputeFeaturesAPIError(t *testing.T) {
	status := http.StatusInternalServerError
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"error": {"code": 500, "message": "Computation timed out.", "status": "INTERNAL"}}`))
	}))
	defer srv.Close()

	s := NewSessionWithClient(srv.Client(), "sample-project", srv.URL)
	_, err := s.ComputeFeatures(context.Background(), NewGraph().Expression(Const(1)))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Computation timed out.", apiErr.Message)
	assert.Equal(t, "INTERNAL", apiErr.Status)
	assert.True(t, apiErr.Temporary())

	status = http.StatusBadRequest
	_, err = s.ComputeFeatures(context.Background(), NewGraph().Expression(Const(1)))
	require.True(t, errors.As(err, &apiErr))
	assert.False(t, apiErr.Temporary())
}

func TestComputeFeaturesHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSessionWithClient(srv.Client(), "sample-project", srv.URL)
	_, err := s.ComputeFeatures(ctx, NewGraph().Expression(Const(1)))
	assert.ErrorIs(t, err, context.Canceled)
}
