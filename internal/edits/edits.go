// Package edits implements derived-artifact operations: face swaps, prompt
// edits, variations, carousel variations and blends.
//
// Every operation follows the same shape: read one or two source artifacts,
// call the edit provider with their storage URLs, and persist each output as
// a child artifact whose parent is the primary source. Children copy the
// source's batch, group and reference filename so lineage and group
// operations keep working across generations.
package edits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atlasreach/mediaforge/internal/domain"
	"github.com/atlasreach/mediaforge/internal/editclient"
)

// Store is the slice of the metadata store edit operations need
type Store interface {
	GetArtifact(ctx context.Context, artifactID string) (*domain.Artifact, error)
	CreateArtifact(ctx context.Context, a *domain.Artifact) error
	SoftDeleteArtifact(ctx context.Context, artifactID string) error
	ListGroupMembers(ctx context.Context, groupID string) ([]domain.Artifact, error)
	ListBatchMembers(ctx context.Context, batchID string) ([]domain.Artifact, error)
}

// Editor is the external edit/blend provider
type Editor interface {
	Edit(ctx context.Context, req editclient.Request) ([]string, error)
}

// Service runs edit operations over the artifact graph
type Service struct {
	logger *slog.Logger
	store  Store
	editor Editor
}

// NewService creates an edit service
func NewService(logger *slog.Logger, store Store, editor Editor) *Service {
	return &Service{
		logger: logger,
		store:  store,
		editor: editor,
	}
}

// FaceSwap swaps the face in one artifact. Destructive: on success the
// source is soft-deleted and the replacement takes its place in the gallery.
// A provider failure leaves the source untouched.
func (s *Service) FaceSwap(ctx context.Context, artifactID, faceImageURL string) (*domain.Artifact, error) {
	source, err := s.liveArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	child, err := s.swapOne(ctx, source, faceImageURL)
	if err != nil {
		return nil, err
	}

	return child, nil
}

// GroupOutcome reports one member of a group operation
type GroupOutcome struct {
	SourceID string
	ChildID  string // set on success
	Error    string // set on failure
}

// GroupResult reports a whole group operation
type GroupResult struct {
	Succeeded []GroupOutcome
	Failed    []GroupOutcome
}

// FaceSwapGroup swaps the face in every live member of a group. Members
// resolve via groupID when given, else batchID. Each member is edited
// independently; failures are tolerated and reported per member, and only
// members that succeeded are soft-deleted as originals.
func (s *Service) FaceSwapGroup(ctx context.Context, groupID, batchID, faceImageURL string) (*GroupResult, error) {
	var members []domain.Artifact
	var err error

	switch {
	case groupID != "":
		members, err = s.store.ListGroupMembers(ctx, groupID)
	case batchID != "":
		members, err = s.store.ListBatchMembers(ctx, batchID)
	default:
		return nil, fmt.Errorf("either a group id or a batch id is required")
	}
	if err != nil {
		return nil, err
	}

	result := &GroupResult{}
	for i := range members {
		source := &members[i]

		child, swapErr := s.swapOne(ctx, source, faceImageURL)
		if swapErr != nil {
			s.logger.Warn("Group face swap member failed",
				slog.String("artifact_id", source.ID),
				slog.String("error", swapErr.Error()),
			)
			result.Failed = append(result.Failed, GroupOutcome{
				SourceID: source.ID,
				Error:    swapErr.Error(),
			})
			continue
		}

		result.Succeeded = append(result.Succeeded, GroupOutcome{
			SourceID: source.ID,
			ChildID:  child.ID,
		})
	}

	s.logger.Info("Group face swap finished",
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
	)

	return result, nil
}

// swapOne edits one source and retires it only after the replacement exists
func (s *Service) swapOne(ctx context.Context, source *domain.Artifact, faceImageURL string) (*domain.Artifact, error) {
	outputs, err := s.editor.Edit(ctx, editclient.Request{
		Prompt:     "swap the face in the first image with the face from the second image",
		Images:     []string{source.StorageURL, faceImageURL},
		MaxOutputs: 1,
	})
	if err != nil {
		return nil, err
	}

	child := s.childOf(source, domain.EditKindFaceSwap, outputs[0], source.BatchID)
	if err := s.store.CreateArtifact(ctx, child); err != nil {
		return nil, err
	}

	if err := s.store.SoftDeleteArtifact(ctx, source.ID); err != nil && !errors.Is(err, domain.ErrArtifactNotFound) {
		return nil, err
	}

	return child, nil
}

// PromptEdit applies a prompt-guided edit. Non-destructive: the source stays
// in the gallery next to its child.
func (s *Service) PromptEdit(ctx context.Context, artifactID, prompt string) (*domain.Artifact, error) {
	source, err := s.liveArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	outputs, err := s.editor.Edit(ctx, editclient.Request{
		Prompt:     prompt,
		Images:     []string{source.StorageURL},
		MaxOutputs: 1,
	})
	if err != nil {
		return nil, err
	}

	child := s.childOf(source, domain.EditKindPromptEdit, outputs[0], source.BatchID)
	child.Prompt = prompt

	if err := s.store.CreateArtifact(ctx, child); err != nil {
		return nil, err
	}

	return child, nil
}

// Variations produces up to n variations of one artifact as a fresh batch.
// Non-destructive.
func (s *Service) Variations(ctx context.Context, artifactID string, n int) ([]*domain.Artifact, error) {
	if n <= 0 {
		n = 1
	}

	source, err := s.liveArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	return s.deriveVariations(ctx, source, n, domain.EditKindVariation, &batchID)
}

// CarouselVariations produces variations that continue the source's batch,
// so the new images join the source's carousel set. A source without a batch
// gets a fresh one. Non-destructive.
func (s *Service) CarouselVariations(ctx context.Context, artifactID string, n int) ([]*domain.Artifact, error) {
	if n <= 0 {
		n = 1
	}

	source, err := s.liveArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	batchID := source.BatchID
	if batchID == nil {
		minted := uuid.New().String()
		batchID = &minted
	}

	return s.deriveVariations(ctx, source, n, domain.EditKindCarouselVariant, batchID)
}

func (s *Service) deriveVariations(ctx context.Context, source *domain.Artifact, n int, editKind string, batchID *string) ([]*domain.Artifact, error) {
	outputs, err := s.editor.Edit(ctx, editclient.Request{
		Prompt:     "generate subtle variations of this image",
		Images:     []string{source.StorageURL},
		MaxOutputs: n,
	})
	if err != nil {
		return nil, err
	}

	children := make([]*domain.Artifact, 0, len(outputs))
	for _, output := range outputs {
		child := s.childOf(source, editKind, output, batchID)
		if err := s.store.CreateArtifact(ctx, child); err != nil {
			return children, err
		}
		children = append(children, child)
	}

	return children, nil
}

// Blend combines two artifacts into one image. The first source is the
// primary: the child hangs off it and copies its batch, group and reference
// filename. Non-destructive for both sources.
func (s *Service) Blend(ctx context.Context, primaryID, secondaryID, prompt string) (*domain.Artifact, error) {
	primary, err := s.liveArtifact(ctx, primaryID)
	if err != nil {
		return nil, err
	}

	secondary, err := s.liveArtifact(ctx, secondaryID)
	if err != nil {
		return nil, err
	}

	if prompt == "" {
		prompt = "blend these two images into one coherent composition"
	}

	outputs, err := s.editor.Edit(ctx, editclient.Request{
		Prompt:     prompt,
		Images:     []string{primary.StorageURL, secondary.StorageURL},
		MaxOutputs: 1,
	})
	if err != nil {
		return nil, err
	}

	child := s.childOf(primary, domain.EditKindBlend, outputs[0], primary.BatchID)
	if err := s.store.CreateArtifact(ctx, child); err != nil {
		return nil, err
	}

	return child, nil
}

// liveArtifact loads an artifact and refuses soft-deleted sources
func (s *Service) liveArtifact(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	artifact, err := s.store.GetArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	if artifact.IsDeleted {
		return nil, fmt.Errorf("%w: artifact %s is deleted", domain.ErrArtifactNotFound, artifactID)
	}

	return artifact, nil
}

// childOf builds a derived artifact carrying the source's lineage tags and
// generation metadata forward
func (s *Service) childOf(source *domain.Artifact, editKind, storageURL string, batchID *string) *domain.Artifact {
	parentID := source.ID

	return &domain.Artifact{
		ID:                uuid.New().String(),
		ParentArtifactID:  &parentID,
		BatchID:           batchID,
		GroupID:           source.GroupID,
		EditKind:          editKind,
		StorageURL:        storageURL,
		ReferenceFilename: source.ReferenceFilename,
		Prompt:            source.Prompt,
		NegativePrompt:    source.NegativePrompt,
		ModelName:         source.ModelName,
		Params:            source.Params,
		CreatedAt:         time.Now().UTC(),
	}
}
