package dto

type SubmitJobRequest struct {
	ModelName         string                 `json:"model_name" binding:"required"`
	TemplateName      string                 `json:"template_name"`
	Prompt            string                 `json:"prompt"`
	NegativePrompt    string                 `json:"negative_prompt"`
	Params            map[string]interface{} `json:"params"`
	Seed              *int64                 `json:"seed"`
	Count             int                    `json:"count"`
	ReferenceFilename string                 `json:"reference_filename"`
}

type SubmitJobResponse struct {
	BatchID string          `json:"batch_id,omitempty"`
	Jobs    []JobOutcomeDTO `json:"jobs"`
}

type JobOutcomeDTO struct {
	JobID  string `json:"job_id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ListJobsRequest struct {
	Status    string `form:"status"`
	ModelName string `form:"model_name"`
	BatchID   string `form:"batch_id"`
	PageSize  int    `form:"page_size"`
	Cursor    string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID             string `json:"job_id"`
	ModelName         string `json:"model_name"`
	TemplateName      string `json:"template_name"`
	Prompt            string `json:"prompt"`
	NegativePrompt    string `json:"negative_prompt,omitempty"`
	Seed              int64  `json:"seed"`
	Params            string `json:"params,omitempty"`
	Status            string `json:"status"`
	ExternalID        string `json:"external_id,omitempty"`
	ResultURL         string `json:"result_url,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	BatchID           string `json:"batch_id,omitempty"`
	ReferenceFilename string `json:"reference_filename,omitempty"`
	CreatedAt         string `json:"created_at"`
	StartedAt         string `json:"started_at,omitempty"`
	CompletedAt       string `json:"completed_at,omitempty"`
}
