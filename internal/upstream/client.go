// Package upstream is a stateless HTTP client for the fal queue API:
// submit a job, fetch its status, fetch its result. Every failure is
// surfaced immediately to the caller; there is no retry or backoff here.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client performs the three queue calls with a per-request credential.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient gets a default with a
// generous timeout; individual calls are bounded by their context.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{httpClient: httpClient}
}

// SubmitResult is the outcome of a job submission.
type SubmitResult struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

// LogEntry is one upstream log line attached to a job status.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// StatusResult is a parsed job status response.
type StatusResult struct {
	StatusCode int
	Status     string     `json:"status"`
	Progress   *float64   `json:"progress,omitempty"`
	Logs       []LogEntry `json:"logs,omitempty"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Body []byte `json:"-"`
}

// ArtifactRef is one generated output reference.
type ArtifactRef struct {
	URL string `json:"url"`
}

// ResultPayload is a parsed job result response. Image models populate
// Images (plural) or Image (singular); video models populate Video.
type ResultPayload struct {
	StatusCode int
	Images     []ArtifactRef `json:"images,omitempty"`
	Image      *ArtifactRef  `json:"image,omitempty"`
	Video      *ArtifactRef  `json:"video,omitempty"`
}

// Submit POSTs the payload to the submission endpoint and extracts the
// job id from `request_id` or nested `request.id` on 200/202.
func (c *Client) Submit(ctx context.Context, url, key string, payload any) (*SubmitResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal submit payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read submit response: %w", err)
	}

	result := &SubmitResult{StatusCode: resp.StatusCode, Body: respBody}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		var parsed struct {
			RequestID string `json:"request_id"`
			Request   struct {
				ID string `json:"id"`
			} `json:"request"`
		}
		if err := json.Unmarshal(respBody, &parsed); err == nil {
			result.RequestID = parsed.RequestID
			if result.RequestID == "" {
				result.RequestID = parsed.Request.ID
			}
		}
	}
	return result, nil
}

// Status GETs the job status endpoint.
func (c *Client) Status(ctx context.Context, url, key string) (*StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}

	result := &StatusResult{StatusCode: resp.StatusCode, Body: body}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, fmt.Errorf("decode status response: %w", err)
		}
	}
	return result, nil
}

// Result GETs the job result endpoint.
func (c *Client) Result(ctx context.Context, url, key string) (*ResultPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read result response: %w", err)
	}

	result := &ResultPayload{StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, fmt.Errorf("decode result response: %w", err)
		}
	}
	return result, nil
}

func (c *Client) setHeaders(req *http.Request, key string) {
	req.Header.Set("Authorization", "Key "+key)
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
}
