package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const replicateBaseURL = "https://api.replicate.com/v1"

// ReplicateClient talks to the Replicate predictions API over plain HTTP.
type ReplicateClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewReplicateClient(token string) *ReplicateClient {
	return &ReplicateClient{
		token:   token,
		baseURL: replicateBaseURL,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Prediction is the subset of the Replicate prediction resource we use.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  *string         `json:"error"`
}

// Terminal reports whether the prediction has reached a final state.
func (p *Prediction) Terminal() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// OutputURLs normalizes the output field, which Replicate returns either as
// a single URL string or as an array of URL strings depending on the model.
func (p *Prediction) OutputURLs() []string {
	if len(p.Output) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil {
		return many
	}
	return nil
}

// CreatePrediction starts a run of an official model. With wait set the
// request holds the connection until the prediction finishes or the
// provider's sync window elapses, in which case the returned prediction is
// still non-terminal and must be polled.
func (c *ReplicateClient) CreatePrediction(ctx context.Context, model string, input map[string]interface{}, wait bool) (*Prediction, error) {
	body, err := json.Marshal(map[string]interface{}{"input": input})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction input: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if wait {
		req.Header.Set("Prefer", "wait=60")
	}

	return c.do(req)
}

// GetPrediction fetches the current state of a prediction.
func (c *ReplicateClient) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req)
}

func (c *ReplicateClient) do(req *http.Request) (*Prediction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read replicate response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &UnauthorizedError{Message: "replicate rejected the API token"}
		case http.StatusTooManyRequests:
			return nil, &RateLimitError{Message: "replicate rate limit exceeded"}
		case http.StatusNotFound:
			return nil, &NotFoundError{Message: "replicate model not found"}
		}
		return nil, fmt.Errorf("replicate returned %d: %s", resp.StatusCode, apiErr.Detail)
	}

	var pred Prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		return nil, fmt.Errorf("failed to decode replicate response: %w", err)
	}
	return &pred, nil
}
