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
	"strconv"
	"strings"
	"time"

	"github.com/atlasreach/mediaforge/internal/domain"
)

// ProviderConfig holds the settings shared by video provider clients
type ProviderConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// Kling is the client for the Kling image-to-video API
type Kling struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewKling creates a Kling provider client
func NewKling(config *ProviderConfig, logger *slog.Logger) *Kling {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Kling{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name returns the provider tag
func (k *Kling) Name() string {
	return domain.VideoProviderKling
}

type klingSubmitRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Image          string `json:"image"`
	ImageTail      string `json:"image_tail,omitempty"`
	Duration       string `json:"duration"`
	Mode           string `json:"mode,omitempty"`
}

type klingEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type klingTask struct {
	TaskID        string `json:"task_id"`
	TaskStatus    string `json:"task_status"`
	TaskStatusMsg string `json:"task_status_msg"`
	TaskResult    struct {
		Videos []struct {
			URL string `json:"url"`
		} `json:"videos"`
	} `json:"task_result"`
}

// Submit starts an image-to-video generation
func (k *Kling) Submit(ctx context.Context, job *domain.VideoJob) (string, error) {
	payload := klingSubmitRequest{
		Prompt:         job.Prompt,
		NegativePrompt: job.NegativePrompt,
		Image:          job.StartImageURL,
		Duration:       strconv.Itoa(job.DurationSeconds),
		Mode:           job.Mode,
	}
	if job.EndImageURL != nil {
		payload.ImageTail = *job.EndImageURL
	}

	var task klingTask
	if err := k.call(ctx, http.MethodPost, "/v1/videos/image2video", payload, &task); err != nil {
		return "", err
	}

	if task.TaskID == "" {
		return "", fmt.Errorf("kling response missing task id")
	}

	k.logger.Debug("Kling task created", slog.String("task_id", task.TaskID))

	return task.TaskID, nil
}

// Poll maps Kling's task_status vocabulary onto the normalized states
func (k *Kling) Poll(ctx context.Context, providerJobID string) (*PollResult, error) {
	var task klingTask
	path := "/v1/videos/image2video/" + url.PathEscape(providerJobID)
	if err := k.call(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, err
	}

	switch strings.ToLower(task.TaskStatus) {
	case "succeed":
		if len(task.TaskResult.Videos) == 0 || task.TaskResult.Videos[0].URL == "" {
			return &PollResult{State: PollStateFailed, ErrorMessage: "kling reported success without a video url"}, nil
		}
		return &PollResult{State: PollStateCompleted, VideoURL: task.TaskResult.Videos[0].URL}, nil

	case "failed":
		msg := task.TaskStatusMsg
		if msg == "" {
			msg = "kling reported failure"
		}
		return &PollResult{State: PollStateFailed, ErrorMessage: msg}, nil

	default:
		// submitted, processing, and anything unknown stays in flight
		return &PollResult{State: PollStateProcessing}, nil
	}
}

// call issues one authenticated request and unwraps Kling's envelope
func (k *Kling) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode kling request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build kling request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+k.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kling request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("kling returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var envelope klingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("invalid kling response: %w", err)
	}

	if envelope.Code != 0 {
		return fmt.Errorf("kling error %d: %s", envelope.Code, envelope.Message)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("invalid kling response data: %w", err)
	}

	return nil
}
