// Package client talks to the inference API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client manages communication with the inference API
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// HealthCheck pings the /health endpoint
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

// Ready reports whether the server has a model loaded
func (c *Client) Ready(ctx context.Context) (bool, error) {
	_, err := c.do(ctx, http.MethodGet, "/ready", nil)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusServiceUnavailable {
		return false, nil
	}
	return err == nil, err
}

// Predict returns the survival label for one passenger
func (c *Client) Predict(ctx context.Context, req models.PredictionRequest) (int, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/prediction", req)
	if err != nil {
		return 0, err
	}
	var resp models.PredictionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode prediction: %w", err)
	}
	return resp.Survived, nil
}

// PredictBatch returns one label per passenger in request order
func (c *Client) PredictBatch(ctx context.Context, reqs []models.PredictionRequest) ([]int, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/batch_prediction", models.BatchPredictionRequest{BatchData: reqs})
	if err != nil {
		return nil, err
	}
	var resp models.BatchPredictionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode batch prediction: %w", err)
	}
	if len(resp.Survived) != len(reqs) {
		return nil, fmt.Errorf("got %d predictions for %d passengers", len(resp.Survived), len(reqs))
	}
	return resp.Survived, nil
}

// Runs lists recorded training or validation runs
func (c *Client) Runs(ctx context.Context, kind models.RunKind) ([]models.TrainingRun, error) {
	path := "/v1/runs"
	if kind != "" {
		path += "?kind=" + string(kind)
	}
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var runs []models.TrainingRun
	if err := json.Unmarshal(body, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run from the server's history
func (c *Client) DeleteRun(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/runs/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readBody(resp)
}

func readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var e struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message, apiErr.Field = e.Error, e.Field
		}
		return nil, apiErr
	}
	return data, nil
}
