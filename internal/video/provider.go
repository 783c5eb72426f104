// Package video tracks video synthesis jobs against external providers.
package video

import (
	"context"

	"github.com/atlasreach/mediaforge/internal/domain"
)

// Normalized poll states. Each provider maps its own status vocabulary onto
// these three.
const (
	PollStateProcessing = "processing"
	PollStateCompleted  = "completed"
	PollStateFailed     = "failed"
)

// PollResult is a provider's normalized answer for one in-flight job
type PollResult struct {
	State        string
	VideoURL     string // set on PollStateCompleted
	ErrorMessage string // set on PollStateFailed
}

// Provider is one external video synthesis backend
type Provider interface {
	// Name is the tag stored on video job records
	Name() string

	// Submit starts generation and returns the provider's job id
	Submit(ctx context.Context, job *domain.VideoJob) (string, error)

	// Poll reports the provider's current verdict for a submitted job
	Poll(ctx context.Context, providerJobID string) (*PollResult, error)
}
