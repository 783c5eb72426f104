// Package comfy is the HTTP client for the image render backend's
// queue+history API.
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atlasreach/mediaforge/internal/domain"
)

// Config holds render backend client settings
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client talks to the render backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a render backend client
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type enqueueRequest struct {
	Template  json.RawMessage `json:"template"`
	ClientTag string          `json:"client_tag"`
}

type enqueueResponse struct {
	CorrelationID string `json:"correlation_id"`
}

// Enqueue submits a filled workflow template and returns the backend's
// correlation id. Non-2xx responses surface ErrBackendRejected with the
// backend's error text.
func (c *Client) Enqueue(ctx context.Context, template json.RawMessage, clientTag string) (string, error) {
	body, err := json.Marshal(enqueueRequest{Template: template, ClientTag: clientTag})
	if err != nil {
		return "", fmt.Errorf("failed to encode enqueue request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/enqueue", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBackendRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrBackendRejected, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var out enqueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: invalid enqueue response: %v", domain.ErrBackendRejected, err)
	}

	if out.CorrelationID == "" {
		return "", fmt.Errorf("%w: enqueue response missing correlation id", domain.ErrBackendRejected)
	}

	c.logger.Debug("Workflow enqueued on render backend",
		slog.String("correlation_id", out.CorrelationID),
		slog.String("client_tag", clientTag),
	)

	return out.CorrelationID, nil
}

// QueueEntry identifies one workflow in the backend's live queue
type QueueEntry struct {
	CorrelationID string `json:"correlation_id"`
	ClientTag     string `json:"client_tag"`
}

// QueueState is the backend's live queue snapshot
type QueueState struct {
	Running []QueueEntry `json:"running"`
	Pending []QueueEntry `json:"pending"`
}

// Contains reports whether the correlation id or client tag appears in the
// running or pending lists
func (q *QueueState) Contains(correlationID, clientTag string) bool {
	for _, entries := range [][]QueueEntry{q.Running, q.Pending} {
		for _, e := range entries {
			if e.CorrelationID == correlationID {
				return true
			}
			if clientTag != "" && e.ClientTag == clientTag {
				return true
			}
		}
	}
	return false
}

// Queue fetches the backend's live queue
func (c *Client) Queue(ctx context.Context) (*QueueState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/queue", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build queue request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewBackendQueryError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewBackendQueryError(fmt.Errorf("queue returned status %d", resp.StatusCode))
	}

	var state QueueState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, domain.NewBackendQueryError(fmt.Errorf("invalid queue response: %w", err))
	}

	return &state, nil
}

// HistoryStatus is the backend's verdict on a finished workflow
type HistoryStatus struct {
	Completed bool   `json:"completed"`
	StatusStr string `json:"status_str"`
}

// OutputRef locates one produced file on the backend
type OutputRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// HistoryEntry is the backend's record for one correlation id
type HistoryEntry struct {
	Status  HistoryStatus          `json:"status"`
	Outputs map[string][]OutputRef `json:"outputs"`
}

// Failed reports an explicit error verdict from the backend
func (h *HistoryEntry) Failed() bool {
	return !h.Status.Completed && strings.EqualFold(h.Status.StatusStr, "error")
}

// History fetches the result record for a correlation id. found is false
// when the backend has no record yet (ambiguous: neither queued nor done).
func (c *Client) History(ctx context.Context, correlationID string) (entry *HistoryEntry, found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(correlationID), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build history request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, domain.NewBackendQueryError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, domain.NewBackendQueryError(fmt.Errorf("history returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, domain.NewBackendQueryError(err)
	}

	// An empty object means the backend has nothing for this id yet
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "{}" || trimmed == "null" {
		return nil, false, nil
	}

	var h HistoryEntry
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, false, domain.NewBackendQueryError(fmt.Errorf("invalid history response: %w", err))
	}

	return &h, true, nil
}

// View downloads the raw bytes of a produced file
func (c *Client) View(ctx context.Context, ref OutputRef) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ViewURL(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build view request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download output: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("view returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read output bytes: %w", err)
	}

	return data, nil
}

// ViewURL returns the backend's direct URL for an output. The reconciler
// falls back to it when the durable copy cannot be persisted; the backend
// may garbage-collect it at any time.
func (c *Client) ViewURL(ref OutputRef) string {
	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	q.Set("type", ref.Type)
	return c.baseURL + "/view?" + q.Encode()
}
