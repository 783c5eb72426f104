package dto

type FaceSwapRequest struct {
	ArtifactID   string `json:"artifact_id" binding:"required"`
	FaceImageURL string `json:"face_image_url" binding:"required"`
}

type FaceSwapGroupRequest struct {
	GroupID      string `json:"group_id"`
	BatchID      string `json:"batch_id"`
	FaceImageURL string `json:"face_image_url" binding:"required"`
}

type GroupOutcomeDTO struct {
	SourceID string `json:"source_id"`
	ChildID  string `json:"child_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type FaceSwapGroupResponse struct {
	Succeeded []GroupOutcomeDTO `json:"succeeded"`
	Failed    []GroupOutcomeDTO `json:"failed"`
}

type PromptEditRequest struct {
	ArtifactID string `json:"artifact_id" binding:"required"`
	Prompt     string `json:"prompt" binding:"required"`
}

type VariationsRequest struct {
	ArtifactID string `json:"artifact_id" binding:"required"`
	Count      int    `json:"count"`
}

type VariationsResponse struct {
	Artifacts []ArtifactDTO `json:"artifacts"`
}

type BlendRequest struct {
	PrimaryArtifactID   string `json:"primary_artifact_id" binding:"required"`
	SecondaryArtifactID string `json:"secondary_artifact_id" binding:"required"`
	Prompt              string `json:"prompt"`
}
