// Package editclient is the HTTP client for the external image edit
// provider used for face swaps, prompt edits, variations and blends.
package editclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/atlasreach/mediaforge/internal/domain"
)

// Config holds edit provider client settings
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// Client talks to the edit provider
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an edit provider client
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Request describes one edit call. Images are public URLs the provider can
// fetch; the first one is the primary input when the operation cares about
// ordering.
type Request struct {
	Prompt     string   `json:"prompt"`
	Images     []string `json:"images"`
	MaxOutputs int      `json:"max_outputs,omitempty"`
}

type response struct {
	Outputs []string `json:"outputs"`
	Error   string   `json:"error,omitempty"`
}

// Edit runs one synchronous edit and returns the output image URLs. Any
// failure surfaces ErrEditProvider; callers leave their sources untouched.
func (c *Client) Edit(ctx context.Context, req Request) ([]string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEditProvider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/edits", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEditProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEditProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrEditProvider, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", domain.ErrEditProvider, err)
	}

	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrEditProvider, out.Error)
	}

	if len(out.Outputs) == 0 {
		return nil, fmt.Errorf("%w: provider returned no outputs", domain.ErrEditProvider)
	}

	c.logger.Debug("Edit call succeeded",
		slog.Int("inputs", len(req.Images)),
		slog.Int("outputs", len(out.Outputs)),
	)

	return out.Outputs, nil
}
