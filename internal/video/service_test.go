package video

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasreach/mediaforge/internal/domain"
)

type fakeVideoStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.VideoJob
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{jobs: make(map[string]*domain.VideoJob)}
}

func (f *fakeVideoStore) CreateVideoJob(_ context.Context, job *domain.VideoJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeVideoStore) GetVideoJob(_ context.Context, jobID string) (*domain.VideoJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrVideoJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeVideoStore) MarkVideoJobProcessing(_ context.Context, jobID, providerJobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok {
		return domain.ErrVideoJobNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return domain.ErrStateConflict
	}

	job.Status = domain.JobStatusProcessing
	job.ProviderJobID = &providerJobID
	return nil
}

func (f *fakeVideoStore) MarkVideoJobCompleted(_ context.Context, jobID, videoURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok {
		return domain.ErrVideoJobNotFound
	}
	if job.Status != domain.JobStatusProcessing {
		return domain.ErrStateConflict
	}

	job.Status = domain.JobStatusCompleted
	job.VideoURL = &videoURL
	return nil
}

func (f *fakeVideoStore) MarkVideoJobFailed(_ context.Context, jobID, expectedStatus, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok {
		return domain.ErrVideoJobNotFound
	}
	if job.Status != expectedStatus {
		return domain.ErrStateConflict
	}

	job.Status = domain.JobStatusFailed
	job.ErrorMessage = &errorMsg
	return nil
}

type fakeProvider struct {
	name string

	submitID  string
	submitErr error

	pollResult *PollResult
	pollErr    error
	pollCalls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Submit(_ context.Context, _ *domain.VideoJob) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitID, nil
}

func (f *fakeProvider) Poll(_ context.Context, _ string) (*PollResult, error) {
	f.pollCalls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.pollResult, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSubmit_Success(t *testing.T) {
	store := newFakeVideoStore()
	provider := &fakeProvider{name: domain.VideoProviderKling, submitID: "task-1"}

	service := NewService(testLogger(), store, provider)

	job, err := service.Submit(context.Background(), SubmitRequest{
		Provider:        domain.VideoProviderKling,
		Prompt:          "waves rolling onto a beach",
		StartImageURL:   "https://cdn.example.com/start.png",
		DurationSeconds: 5,
		Mode:            "std",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, domain.VideoProviderKling, job.Provider)
	require.NotNil(t, job.ProviderJobID)
	assert.Equal(t, "task-1", *job.ProviderJobID)
}

func TestSubmit_UnknownProvider(t *testing.T) {
	service := NewService(testLogger(), newFakeVideoStore())

	_, err := service.Submit(context.Background(), SubmitRequest{Provider: "sora"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown video provider")
}

func TestSubmit_ProviderRejectionNeverLeavesQueued(t *testing.T) {
	store := newFakeVideoStore()
	provider := &fakeProvider{
		name:      domain.VideoProviderHailuo,
		submitErr: errors.New("hailuo error 1008: insufficient balance"),
	}

	service := NewService(testLogger(), store, provider)

	job, err := service.Submit(context.Background(), SubmitRequest{
		Provider:      domain.VideoProviderHailuo,
		StartImageURL: "https://cdn.example.com/start.png",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "insufficient balance")
}

func TestCheck_CompletedRecordsVideoURL(t *testing.T) {
	store := newFakeVideoStore()
	provider := &fakeProvider{
		name:       domain.VideoProviderKling,
		submitID:   "task-1",
		pollResult: &PollResult{State: PollStateCompleted, VideoURL: "https://videos.example.com/out.mp4"},
	}

	service := NewService(testLogger(), store, provider)

	job, err := service.Submit(context.Background(), SubmitRequest{
		Provider:      domain.VideoProviderKling,
		StartImageURL: "https://cdn.example.com/start.png",
	})
	require.NoError(t, err)

	checked, err := service.Check(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, checked.Status)
	require.NotNil(t, checked.VideoURL)
	assert.Equal(t, "https://videos.example.com/out.mp4", *checked.VideoURL)
}

func TestCheck_FailedRecordsProviderError(t *testing.T) {
	store := newFakeVideoStore()
	provider := &fakeProvider{
		name:       domain.VideoProviderKling,
		submitID:   "task-1",
		pollResult: &PollResult{State: PollStateFailed, ErrorMessage: "content policy violation"},
	}

	service := NewService(testLogger(), store, provider)

	job, err := service.Submit(context.Background(), SubmitRequest{
		Provider:      domain.VideoProviderKling,
		StartImageURL: "https://cdn.example.com/start.png",
	})
	require.NoError(t, err)

	checked, err := service.Check(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, checked.Status)
	require.NotNil(t, checked.ErrorMessage)
	assert.Equal(t, "content policy violation", *checked.ErrorMessage)
}

func TestCheck_StillProcessing(t *testing.T) {
	store := newFakeVideoStore()
	provider := &fakeProvider{
		name:       domain.VideoProviderKling,
		submitID:   "task-1",
		pollResult: &PollResult{State: PollStateProcessing},
	}

	service := NewService(testLogger(), store, provider)

	job, err := service.Submit(context.Background(), SubmitRequest{
		Provider:      domain.VideoProviderKling,
		StartImageURL: "https://cdn.example.com/start.png",
	})
	require.NoError(t, err)

	checked, err := service.Check(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, checked.Status)
}

func TestCheck_TerminalJobSkipsProvider(t *testing.T) {
	store := newFakeVideoStore()
	provider := &fakeProvider{
		name:       domain.VideoProviderKling,
		submitID:   "task-1",
		pollResult: &PollResult{State: PollStateCompleted, VideoURL: "https://videos.example.com/out.mp4"},
	}

	service := NewService(testLogger(), store, provider)

	job, err := service.Submit(context.Background(), SubmitRequest{
		Provider:      domain.VideoProviderKling,
		StartImageURL: "https://cdn.example.com/start.png",
	})
	require.NoError(t, err)

	_, err = service.Check(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, 1, provider.pollCalls)

	// A second check finds the job terminal and never polls again
	checked, err := service.Check(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, checked.Status)
	assert.Equal(t, 1, provider.pollCalls)
}

func TestCheck_PollErrorLeavesJobProcessing(t *testing.T) {
	store := newFakeVideoStore()
	provider := &fakeProvider{
		name:     domain.VideoProviderKling,
		submitID: "task-1",
		pollErr:  errors.New("kling returned status 502"),
	}

	service := NewService(testLogger(), store, provider)

	job, err := service.Submit(context.Background(), SubmitRequest{
		Provider:      domain.VideoProviderKling,
		StartImageURL: "https://cdn.example.com/start.png",
	})
	require.NoError(t, err)

	_, err = service.Check(context.Background(), job.ID)
	require.Error(t, err)

	current, err := store.GetVideoJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, current.Status)
}

func TestCheck_NotFound(t *testing.T) {
	service := NewService(testLogger(), newFakeVideoStore())

	_, err := service.Check(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrVideoJobNotFound)
}
