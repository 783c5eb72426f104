package domain

import "time"

// Video provider tags stored on video job records.
const (
	VideoProviderKling  = "kling"
	VideoProviderHailuo = "hailuo"
)

// VideoJob represents one video synthesis request tracked against an
// external provider. The provider's result URL is accepted directly; video
// bytes are never re-uploaded to durable storage.
type VideoJob struct {
	ID              string     `db:"job_id"`
	Provider        string     `db:"provider"`
	Prompt          string     `db:"prompt"`
	NegativePrompt  string     `db:"negative_prompt"`
	StartImageURL   string     `db:"start_image_url"`
	EndImageURL     *string    `db:"end_image_url"`
	DurationSeconds int        `db:"duration_seconds"`
	Mode            string     `db:"mode"`
	ProviderJobID   *string    `db:"provider_job_id"`
	VideoURL        *string    `db:"video_url"`
	Status          string     `db:"status"`
	ErrorMessage    *string    `db:"error_message"`
	CreatedAt       time.Time  `db:"created_at"`
	StartedAt       *time.Time `db:"started_at"`
	CompletedAt     *time.Time `db:"completed_at"`
}
