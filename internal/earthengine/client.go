package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/paulmach/orb/geojson"
)

// APIError is a non-2xx answer of the REST API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("earth engine: %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type computeRequest struct {
	Expression Expression `json:"expression"`
	PageToken  string     `json:"pageToken,omitempty"`
}

type computeResponse struct {
	Features      []*geojson.Feature `json:"features"`
	NextPageToken string             `json:"nextPageToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ComputeFeatures evaluates a FeatureCollection expression and follows pagination
// until every feature is collected.
func (s *Session) ComputeFeatures(ctx context.Context, expr Expression) ([]*geojson.Feature, error) {
	url := fmt.Sprintf("%s/v1/projects/%s/table:computeFeatures", s.APIURL, s.Project)
	var features []*geojson.Feature
	token := ""
	for {
		page, err := s.post(ctx, url, computeRequest{Expression: expr, PageToken: token})
		if err != nil {
			return nil, err
		}
		features = append(features, page.Features...)
		if page.NextPageToken == "" {
			return features, nil
		}
		token = page.NextPageToken
	}
}

func (s *Session) post(ctx context.Context, url string, body computeRequest) (*computeResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(data)}
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
			apiErr.Status, apiErr.Message = e.Error.Status, e.Error.Message
		}
		return nil, apiErr
	}

	var page computeResponse
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return &page, nil
}
