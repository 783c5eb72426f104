package video

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

// Hailuo is the client for the Hailuo (MiniMax) video generation API. Its
// poll answer carries a file id, not a URL, so a completed poll makes a
// second call to resolve the download URL.
type Hailuo struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHailuo creates a Hailuo provider client
func NewHailuo(config *ProviderConfig, logger *slog.Logger) *Hailuo {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Hailuo{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name returns the provider tag
func (h *Hailuo) Name() string {
	return domain.VideoProviderHailuo
}

type hailuoSubmitRequest struct {
	Model           string `json:"model"`
	Prompt          string `json:"prompt"`
	FirstFrameImage string `json:"first_frame_image"`
	LastFrameImage  string `json:"last_frame_image,omitempty"`
	Duration        int    `json:"duration"`
}

type hailuoBaseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

type hailuoSubmitResponse struct {
	TaskID   string         `json:"task_id"`
	BaseResp hailuoBaseResp `json:"base_resp"`
}

type hailuoQueryResponse struct {
	TaskID   string         `json:"task_id"`
	Status   string         `json:"status"`
	FileID   string         `json:"file_id"`
	BaseResp hailuoBaseResp `json:"base_resp"`
}

type hailuoFileResponse struct {
	File struct {
		DownloadURL string `json:"download_url"`
	} `json:"file"`
	BaseResp hailuoBaseResp `json:"base_resp"`
}

// Submit starts a video generation task
func (h *Hailuo) Submit(ctx context.Context, job *domain.VideoJob) (string, error) {
	payload := hailuoSubmitRequest{
		Model:           job.Mode,
		Prompt:          job.Prompt,
		FirstFrameImage: job.StartImageURL,
		Duration:        job.DurationSeconds,
	}
	if job.EndImageURL != nil {
		payload.LastFrameImage = *job.EndImageURL
	}

	var out hailuoSubmitResponse
	if err := h.call(ctx, http.MethodPost, "/v1/video_generation", payload, &out); err != nil {
		return "", err
	}

	if out.BaseResp.StatusCode != 0 {
		return "", fmt.Errorf("hailuo error %d: %s", out.BaseResp.StatusCode, out.BaseResp.StatusMsg)
	}

	if out.TaskID == "" {
		return "", fmt.Errorf("hailuo response missing task id")
	}

	h.logger.Debug("Hailuo task created", slog.String("task_id", out.TaskID))

	return out.TaskID, nil
}

// Poll maps Hailuo's status vocabulary onto the normalized states, resolving
// the file id to a download URL on success
func (h *Hailuo) Poll(ctx context.Context, providerJobID string) (*PollResult, error) {
	var out hailuoQueryResponse
	path := "/v1/query/video_generation?task_id=" + url.QueryEscape(providerJobID)
	if err := h.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	if out.BaseResp.StatusCode != 0 {
		return nil, fmt.Errorf("hailuo error %d: %s", out.BaseResp.StatusCode, out.BaseResp.StatusMsg)
	}

	switch strings.ToLower(out.Status) {
	case "success":
		videoURL, err := h.resolveFile(ctx, out.FileID)
		if err != nil {
			return nil, err
		}
		return &PollResult{State: PollStateCompleted, VideoURL: videoURL}, nil

	case "fail":
		msg := out.BaseResp.StatusMsg
		if msg == "" {
			msg = "hailuo reported failure"
		}
		return &PollResult{State: PollStateFailed, ErrorMessage: msg}, nil

	default:
		// Queueing, Preparing, Processing
		return &PollResult{State: PollStateProcessing}, nil
	}
}

// resolveFile exchanges a file id for its download URL
func (h *Hailuo) resolveFile(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("hailuo reported success without a file id")
	}

	var out hailuoFileResponse
	path := "/v1/files/retrieve?file_id=" + url.QueryEscape(fileID)
	if err := h.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}

	if out.BaseResp.StatusCode != 0 {
		return "", fmt.Errorf("hailuo error %d: %s", out.BaseResp.StatusCode, out.BaseResp.StatusMsg)
	}

	if out.File.DownloadURL == "" {
		return "", fmt.Errorf("hailuo file %s has no download url", fileID)
	}

	return out.File.DownloadURL, nil
}

func (h *Hailuo) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode hailuo request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build hailuo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hailuo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("hailuo returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid hailuo response: %w", err)
	}

	return nil
}
