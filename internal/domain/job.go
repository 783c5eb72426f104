package domain

import "time"

// Job status constants
const (
	JobStatusQueued     = "QUEUED"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

// Job represents one rendering request submitted to the image backend.
//
// ExternalID is the backend's correlation id and is set exactly when the job
// has left QUEUED. ResultURL is set only on COMPLETED.
type Job struct {
	ID                string     `db:"job_id"`
	ModelName         string     `db:"model_name"`
	TemplateName      string     `db:"template_name"`
	Params            string     `db:"params"` // JSON object of generation parameters
	Prompt            string     `db:"prompt"`
	NegativePrompt    string     `db:"negative_prompt"`
	Seed              int64      `db:"seed"`
	Status            string     `db:"status"`
	ExternalID        *string    `db:"external_id"`
	ResultURL         *string    `db:"result_url"`
	ErrorMessage      *string    `db:"error_message"`
	BatchID           *string    `db:"batch_id"`
	ReferenceFilename *string    `db:"reference_filename"`
	CreatedAt         time.Time  `db:"created_at"`
	StartedAt         *time.Time `db:"started_at"`
	CompletedAt       *time.Time `db:"completed_at"`
}

// JobMessage is the payload published to RabbitMQ after a job is accepted by
// the render backend. The worker uses it to run an eager first check.
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}
