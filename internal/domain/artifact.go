package domain

import "time"

// Edit kinds recorded on artifacts. EditKindNone marks render-originated
// artifacts; everything else marks edit-originated ones.
const (
	EditKindNone            = "none"
	EditKindFaceSwap        = "face_swap"
	EditKindPromptEdit      = "prompt_edit"
	EditKindVariation       = "variation"
	EditKindCarouselVariant = "carousel_variation"
	EditKindBlend           = "blend"
)

// Artifact is a gallery-visible generated or derived image.
//
// Exactly one of SourceJobID and ParentArtifactID is meaningful per creation
// path: render-originated artifacts carry SourceJobID, edit-originated ones
// carry ParentArtifactID. Soft-deleted artifacts stay in the table for
// lineage traversal but are excluded from gallery listings.
type Artifact struct {
	ID                string     `db:"artifact_id"`
	SourceJobID       *string    `db:"source_job_id"`
	ParentArtifactID  *string    `db:"parent_artifact_id"`
	BatchID           *string    `db:"batch_id"`
	GroupID           *string    `db:"group_id"`
	EditKind          string     `db:"edit_kind"`
	StorageURL        string     `db:"storage_url"`
	ReferenceFilename *string    `db:"reference_filename"`
	Prompt            string     `db:"prompt"`
	NegativePrompt    string     `db:"negative_prompt"`
	ModelName         string     `db:"model_name"`
	Params            string     `db:"params"`
	IsStarred         bool       `db:"is_starred"`
	IsDeleted         bool       `db:"is_deleted"`
	DeletedAt         *time.Time `db:"deleted_at"`
	CreatedAt         time.Time  `db:"created_at"`
}
