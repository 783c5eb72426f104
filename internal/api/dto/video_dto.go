package dto

type SubmitVideoRequest struct {
	Provider        string  `json:"provider" binding:"required"`
	Prompt          string  `json:"prompt"`
	NegativePrompt  string  `json:"negative_prompt"`
	StartImageURL   string  `json:"start_image_url" binding:"required"`
	EndImageURL     *string `json:"end_image_url"`
	DurationSeconds int     `json:"duration_seconds"`
	Mode            string  `json:"mode"`
}

type VideoJobDTO struct {
	JobID           string `json:"job_id"`
	Provider        string `json:"provider"`
	Prompt          string `json:"prompt,omitempty"`
	NegativePrompt  string `json:"negative_prompt,omitempty"`
	StartImageURL   string `json:"start_image_url"`
	EndImageURL     string `json:"end_image_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Mode            string `json:"mode,omitempty"`
	ProviderJobID   string `json:"provider_job_id,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"error_message,omitempty"`
	CreatedAt       string `json:"created_at"`
	StartedAt       string `json:"started_at,omitempty"`
	CompletedAt     string `json:"completed_at,omitempty"`
}
