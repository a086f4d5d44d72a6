// Package thumbjob implements the consumed contract of the secondary
// transcoding service: submit a thumbnail-extraction job, poll its
// status, fetch the result location.
package thumbjob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// Config options for the thumbnail job client
type Config struct {
	BaseURL string        // e.g. "https://transcode.example.com"
	Timeout time.Duration // per-request timeout (default: 5s)
	Client  *http.Client  // optional custom client
}

// Client talks JSON over HTTP to the secondary transcoding service.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// New creates a new thumbnail job client
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  client,
		timeout: cfg.Timeout,
	}, nil
}

type jobResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"` // queued, running, done, failed
	ResultURL string `json:"result_url"`
}

// SubmitThumbnailJob submits an extraction job for the given source video.
func (c *Client) SubmitThumbnailJob(ctx context.Context, sourceURI string) (*mediaresolve.ThumbnailJob, error) {
	payload, _ := json.Marshal(map[string]string{
		"source_url": sourceURI,
		"kind":       "thumbnail",
	})

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/jobs", payload)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJob fetches the current state of a submitted job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*mediaresolve.ThumbnailJob, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("%s/v1/jobs/%s", c.baseURL, jobID), nil)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) (*mediaresolve.ThumbnailJob, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader *bytes.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcode service request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("transcode service returned status %d", res.StatusCode)
	}

	var body jobResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode transcode response: %w", err)
	}
	return &mediaresolve.ThumbnailJob{
		ID:        body.ID,
		Done:      body.Status == "done" || body.Status == "failed",
		Failed:    body.Status == "failed",
		ResultURI: body.ResultURL,
	}, nil
}

var _ mediaresolve.ThumbnailJobClient = (*Client)(nil)
