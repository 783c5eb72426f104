package dto

type ListArtifactsRequest struct {
	Starred  *bool  `form:"starred"`
	GroupID  string `form:"group_id"`
	BatchID  string `form:"batch_id"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListArtifactsResponse struct {
	Artifacts  []ArtifactDTO `json:"artifacts"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type ArtifactDTO struct {
	ArtifactID        string `json:"artifact_id"`
	SourceJobID       string `json:"source_job_id,omitempty"`
	ParentArtifactID  string `json:"parent_artifact_id,omitempty"`
	BatchID           string `json:"batch_id,omitempty"`
	GroupID           string `json:"group_id,omitempty"`
	EditKind          string `json:"edit_kind"`
	StorageURL        string `json:"storage_url"`
	ReferenceFilename string `json:"reference_filename,omitempty"`
	Prompt            string `json:"prompt,omitempty"`
	NegativePrompt    string `json:"negative_prompt,omitempty"`
	ModelName         string `json:"model_name,omitempty"`
	Params            string `json:"params,omitempty"`
	IsStarred         bool   `json:"is_starred"`
	CreatedAt         string `json:"created_at"`
}

type StarArtifactRequest struct {
	Starred bool `json:"starred"`
}

type AssignGroupRequest struct {
	ArtifactIDs []string `json:"artifact_ids" binding:"required"`
	GroupID     string   `json:"group_id"`
}

type AssignGroupResponse struct {
	GroupID     string   `json:"group_id"`
	ArtifactIDs []string `json:"artifact_ids"`
}
