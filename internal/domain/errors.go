package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrVideoJobNotFound is returned when a video job cannot be found
	ErrVideoJobNotFound = errors.New("video job not found")

	// ErrModelNotFound is returned when the referenced model is not registered
	ErrModelNotFound = errors.New("model not found")

	// ErrArtifactNotFound is returned when the referenced artifact is absent
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrTemplateLoad is returned when a workflow template is missing or unparseable
	ErrTemplateLoad = errors.New("failed to load workflow template")

	// ErrBackendRejected is returned when the render backend refuses an enqueue
	ErrBackendRejected = errors.New("render backend rejected the job")

	// ErrEditProvider is returned when the edit/blend provider call fails;
	// source artifacts are left untouched
	ErrEditProvider = errors.New("edit provider request failed")

	// ErrStateConflict is returned when a conditional status transition
	// matched zero rows (another writer got there first)
	ErrStateConflict = errors.New("job is not in the expected status")
)

// BackendQueryError wraps transient errors from polling the backend's queue
// or history. The reconciler logs these and retries on the next sweep.
type BackendQueryError struct {
	Err error
}

func (e *BackendQueryError) Error() string {
	return "backend query failed: " + e.Err.Error()
}

func (e *BackendQueryError) Unwrap() error {
	return e.Err
}

// NewBackendQueryError wraps err as a transient backend query failure
func NewBackendQueryError(err error) error {
	return &BackendQueryError{Err: err}
}

// PersistError wraps a durable-storage failure while materializing a result.
// It degrades the artifact to the backend's ephemeral URL, it never fails
// the job.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return "failed to persist artifact to durable storage: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
