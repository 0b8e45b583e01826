package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/hoopfuse/internal/adapters/repository"
	"github.com/okian/hoopfuse/internal/domain/model"
)

// httpClient wraps http.Client with a per-request timeout.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

type jobRequest struct {
	JobID   string         `json:"jobId"`
	Signals *model.Signals `json:"signals"`
	Options model.Options  `json:"options"`
}

type ackResponse struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

func (c *httpClient) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// submit posts one job and returns the HTTP status with the decoded ack.
func (c *httpClient) submit(ctx context.Context, body jobRequest) (int, ackResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, ackResponse{}, fmt.Errorf("failed to marshal job %s: %w", body.JobID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(payload))
	if err != nil {
		return 0, ackResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, ackResponse{}, err
	}
	defer resp.Body.Close()

	var ack ackResponse
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return resp.StatusCode, ack, fmt.Errorf("failed to decode ack: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, ack, nil
}

func (c *httpClient) result(ctx context.Context, id string) (repository.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+id, http.NoBody)
	if err != nil {
		return repository.Result{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return repository.Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return repository.Result{}, fmt.Errorf("job %s: status %d", id, resp.StatusCode)
	}
	var r repository.Result
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return repository.Result{}, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return r, nil
}
