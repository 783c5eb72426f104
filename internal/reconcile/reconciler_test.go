package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasreach/mediaforge/internal/comfy"
	"github.com/atlasreach/mediaforge/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	artifacts []*domain.Artifact

	completeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*domain.Job)}
}

func (f *fakeStore) addProcessing(jobID, externalID string) *domain.Job {
	started := time.Now().UTC().Add(-time.Minute)
	job := &domain.Job{
		ID:         jobID,
		ModelName:  "aurora",
		Prompt:     "a lighthouse at dusk",
		Params:     `{"steps":30}`,
		Seed:       42,
		Status:     domain.JobStatusProcessing,
		ExternalID: &externalID,
		CreatedAt:  started,
		StartedAt:  &started,
	}
	f.jobs[jobID] = job
	return job
}

func (f *fakeStore) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) ListProcessingJobs(_ context.Context, limit int) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var jobs []domain.Job
	for _, job := range f.jobs {
		if job.Status == domain.JobStatusProcessing && len(jobs) < limit {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

func (f *fakeStore) MarkJobCompleted(_ context.Context, jobID, resultURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.completeErr != nil {
		return f.completeErr
	}

	job, ok := f.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusProcessing {
		return domain.ErrStateConflict
	}

	job.Status = domain.JobStatusCompleted
	job.ResultURL = &resultURL
	return nil
}

func (f *fakeStore) MarkJobFailed(_ context.Context, jobID, expectedStatus, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != expectedStatus {
		return domain.ErrStateConflict
	}

	job.Status = domain.JobStatusFailed
	job.ErrorMessage = &errorMsg
	return nil
}

func (f *fakeStore) CreateArtifact(_ context.Context, a *domain.Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.artifacts {
		if existing.SourceJobID != nil && a.SourceJobID != nil && *existing.SourceJobID == *a.SourceJobID {
			return nil // unique index makes the insert a no-op
		}
	}

	copied := *a
	f.artifacts = append(f.artifacts, &copied)
	return nil
}

type fakeBackend struct {
	queue    *comfy.QueueState
	queueErr error

	histories  map[string]*comfy.HistoryEntry
	historyErr map[string]error

	viewData []byte
	viewErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		queue:      &comfy.QueueState{},
		histories:  make(map[string]*comfy.HistoryEntry),
		historyErr: make(map[string]error),
		viewData:   []byte("png-bytes"),
	}
}

func (f *fakeBackend) Queue(_ context.Context) (*comfy.QueueState, error) {
	if f.queueErr != nil {
		return nil, f.queueErr
	}
	return f.queue, nil
}

func (f *fakeBackend) History(_ context.Context, correlationID string) (*comfy.HistoryEntry, bool, error) {
	if err := f.historyErr[correlationID]; err != nil {
		return nil, false, err
	}

	entry, ok := f.histories[correlationID]
	return entry, ok, nil
}

func (f *fakeBackend) View(_ context.Context, _ comfy.OutputRef) ([]byte, error) {
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	return f.viewData, nil
}

func (f *fakeBackend) ViewURL(ref comfy.OutputRef) string {
	return "http://backend/view?filename=" + ref.Filename
}

type fakeObjectStore struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	uploadErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{uploads: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func completedHistory(filename string) *comfy.HistoryEntry {
	return &comfy.HistoryEntry{
		Status: comfy.HistoryStatus{Completed: true, StatusStr: "success"},
		Outputs: map[string][]comfy.OutputRef{
			"9": {{Filename: filename, Subfolder: "", Type: "output"}},
		},
	}
}

func newTestReconciler(store *fakeStore, backend *fakeBackend, objects *fakeObjectStore) *Reconciler {
	return NewReconciler(&Config{
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		Store:        store,
		Backend:      backend,
		ObjectStore:  objects,
		OutputNodeID: "9",
		BatchSize:    50,
	})
}

func TestCheckJob_StillQueuedStaysProcessing(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")

	backend := newFakeBackend()
	backend.queue = &comfy.QueueState{
		Pending: []comfy.QueueEntry{{CorrelationID: "corr-1"}},
	}

	r := newTestReconciler(store, backend, newFakeObjectStore())

	job, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
}

func TestCheckJob_CompletedProducesArtifact(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")

	backend := newFakeBackend()
	backend.histories["corr-1"] = completedHistory("out_001.png")

	objects := newFakeObjectStore()
	r := newTestReconciler(store, backend, objects)

	job, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "https://cdn.example.com/jobs/job-1/out_001.png", *job.ResultURL)

	// Bytes landed in durable storage
	assert.Equal(t, []byte("png-bytes"), objects.uploads["jobs/job-1/out_001.png"])

	// Artifact carries the job's denormalized generation metadata
	require.Len(t, store.artifacts, 1)
	artifact := store.artifacts[0]
	require.NotNil(t, artifact.SourceJobID)
	assert.Equal(t, "job-1", *artifact.SourceJobID)
	assert.Equal(t, domain.EditKindNone, artifact.EditKind)
	assert.Equal(t, *job.ResultURL, artifact.StorageURL)
	assert.Equal(t, "a lighthouse at dusk", artifact.Prompt)
	assert.Equal(t, "aurora", artifact.ModelName)
	assert.Equal(t, `{"steps":30}`, artifact.Params)
}

func TestCheckJob_BackendErrorFailsJob(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")

	backend := newFakeBackend()
	backend.histories["corr-1"] = &comfy.HistoryEntry{
		Status: comfy.HistoryStatus{Completed: false, StatusStr: "error"},
	}

	r := newTestReconciler(store, backend, newFakeObjectStore())

	job, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "error")
	assert.Empty(t, store.artifacts)
}

func TestCheckJob_AmbiguousStaysProcessing(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")

	// Absent from both queue and history
	r := newTestReconciler(store, newFakeBackend(), newFakeObjectStore())

	job, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
}

func TestCheckJob_PersistFailureDegradesToEphemeralURL(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")

	backend := newFakeBackend()
	backend.histories["corr-1"] = completedHistory("out_001.png")

	objects := newFakeObjectStore()
	objects.uploadErr = errors.New("bucket unavailable")

	r := newTestReconciler(store, backend, objects)

	job, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "http://backend/view?filename=out_001.png", *job.ResultURL)

	// The degraded URL is what the artifact records too
	require.Len(t, store.artifacts, 1)
	assert.Equal(t, *job.ResultURL, store.artifacts[0].StorageURL)
}

func TestCheckJob_CompletedWithoutOutputsFails(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")

	backend := newFakeBackend()
	backend.histories["corr-1"] = &comfy.HistoryEntry{
		Status:  comfy.HistoryStatus{Completed: true, StatusStr: "success"},
		Outputs: map[string][]comfy.OutputRef{},
	}

	r := newTestReconciler(store, backend, newFakeObjectStore())

	job, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "without outputs")
}

func TestCheckJob_FallsBackToOtherOutputNode(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")

	backend := newFakeBackend()
	backend.histories["corr-1"] = &comfy.HistoryEntry{
		Status: comfy.HistoryStatus{Completed: true, StatusStr: "success"},
		Outputs: map[string][]comfy.OutputRef{
			"12": {{Filename: "alt_001.png", Type: "output"}},
		},
	}

	r := newTestReconciler(store, backend, newFakeObjectStore())

	job, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Contains(t, *job.ResultURL, "alt_001.png")
}

func TestCheckJob_TerminalJobReturnedWithoutBackendCalls(t *testing.T) {
	store := newFakeStore()
	job := store.addProcessing("job-1", "corr-1")
	job.Status = domain.JobStatusCompleted

	backend := newFakeBackend()
	backend.queueErr = errors.New("backend down")

	r := newTestReconciler(store, backend, newFakeObjectStore())

	got, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err, "terminal jobs never touch the backend")
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
}

func TestCheckJob_NotFound(t *testing.T) {
	r := newTestReconciler(newFakeStore(), newFakeBackend(), newFakeObjectStore())

	_, err := r.CheckJob(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestCheckJob_LostCompletionRaceIsSettled(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")
	store.completeErr = domain.ErrStateConflict

	backend := newFakeBackend()
	backend.histories["corr-1"] = completedHistory("out_001.png")

	r := newTestReconciler(store, backend, newFakeObjectStore())

	_, err := r.CheckJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Empty(t, store.artifacts, "the winning writer owns the artifact")
}

func TestSweep_QueueFailureAbortsSweep(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")

	backend := newFakeBackend()
	backend.queueErr = domain.NewBackendQueryError(errors.New("connection refused"))

	r := newTestReconciler(store, backend, newFakeObjectStore())

	err := r.Sweep(context.Background())
	require.Error(t, err)

	var queryErr *domain.BackendQueryError
	assert.ErrorAs(t, err, &queryErr)
	assert.Equal(t, domain.JobStatusProcessing, store.jobs["job-1"].Status)
}

func TestSweep_PerJobErrorsAreIsolated(t *testing.T) {
	store := newFakeStore()
	store.addProcessing("job-1", "corr-1")
	store.addProcessing("job-2", "corr-2")

	backend := newFakeBackend()
	backend.historyErr["corr-1"] = domain.NewBackendQueryError(errors.New("timeout"))
	backend.histories["corr-2"] = completedHistory("out_002.png")

	r := newTestReconciler(store, backend, newFakeObjectStore())

	require.NoError(t, r.Sweep(context.Background()))

	// job-1 stays for the next sweep, job-2 settled anyway
	assert.Equal(t, domain.JobStatusProcessing, store.jobs["job-1"].Status)
	assert.Equal(t, domain.JobStatusCompleted, store.jobs["job-2"].Status)
}

func TestSweep_EmptyBatchSkipsQueueFetch(t *testing.T) {
	backend := newFakeBackend()
	backend.queueErr = errors.New("backend down")

	r := newTestReconciler(newFakeStore(), backend, newFakeObjectStore())

	assert.NoError(t, r.Sweep(context.Background()))
}

type fakeReaperStore struct {
	jobCutoff   time.Time
	videoCutoff time.Time
	jobMsg      string
	reaped      int
	videoReaped int
}

func (f *fakeReaperStore) ReapStuckJobs(_ context.Context, cutoff time.Time, msg string) (int, error) {
	f.jobCutoff = cutoff
	f.jobMsg = msg
	return f.reaped, nil
}

func (f *fakeReaperStore) ReapStuckVideoJobs(_ context.Context, cutoff time.Time, _ string) (int, error) {
	f.videoCutoff = cutoff
	return f.videoReaped, nil
}

func TestReapOnce(t *testing.T) {
	store := &fakeReaperStore{reaped: 3, videoReaped: 1}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	reaper := NewReaper(logger, store, 15*time.Minute)

	total, err := reaper.ReapOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Contains(t, store.jobMsg, "timed out")

	// Cutoff sits maxAge in the past
	expected := time.Now().UTC().Add(-15 * time.Minute)
	assert.WithinDuration(t, expected, store.jobCutoff, 5*time.Second)
	assert.Equal(t, store.jobCutoff, store.videoCutoff)
}

func TestReapOnce_NothingStuck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	reaper := NewReaper(logger, &fakeReaperStore{}, time.Minute)

	total, err := reaper.ReapOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}
