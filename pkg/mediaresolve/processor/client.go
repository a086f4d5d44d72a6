// Package processor implements the consumed contract of the external
// media processor: given an asset id, report readiness and the native
// stream/thumbnail URIs.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// Config options for the processor client
type Config struct {
	BaseURL string        // e.g. "https://api.processor.example.com"
	Token   string        // bearer token, optional
	Timeout time.Duration // per-request timeout (default: 5s)
	Client  *http.Client  // optional custom client
}

// Client talks JSON over HTTP to the external media processor.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	timeout time.Duration
}

// New creates a new processor client
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
		token:   cfg.Token,
		client:  client,
		timeout: cfg.Timeout,
	}, nil
}

type assetResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	StreamURL    string `json:"stream_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// GetAsset fetches the processor's view of one asset.
func (c *Client) GetAsset(ctx context.Context, externalID string) (*mediaresolve.ProcessorAsset, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/assets/%s", c.baseURL, externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processor request: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("processor asset %s: %w", externalID, mediaresolve.ErrAssetNotFound)
	default:
		return nil, fmt.Errorf("processor returned status %d for asset %s", res.StatusCode, externalID)
	}

	var body assetResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode processor response: %w", err)
	}

	return &mediaresolve.ProcessorAsset{
		ExternalID:   body.ID,
		Ready:        body.Status == "ready",
		StreamURI:    body.StreamURL,
		ThumbnailURI: body.ThumbnailURL,
	}, nil
}

var _ mediaresolve.MediaProcessor = (*Client)(nil)
