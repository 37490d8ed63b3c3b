package analysis

import "context"

// Repo defines persistence operations for analysis jobs. Implementations
// enforce the forward-only status machine and monotone progress: updates
// that would move a job backwards return ErrInvalidTransition, and a
// progress below the stored value is ignored.
type Repo interface {
	// GetOrCreateForSession returns the session's active or completed job,
	// or stores the given job when none blocks it. A failed job is replaced.
	// The boolean reports whether the given job was stored.
	GetOrCreateForSession(ctx context.Context, job Job) (Job, bool, error)

	GetBySession(ctx context.Context, sessionID string) (Job, error)

	// MarkRunning moves a pending job to in_progress.
	MarkRunning(ctx context.Context, sessionID string) error

	// UpdateProgress advances progress and the stage message of a running job.
	UpdateProgress(ctx context.Context, sessionID string, progress int, message string) error

	// Complete stores the result and moves the job to completed at 100%.
	Complete(ctx context.Context, sessionID string, result Result) error

	// Fail records the failure and moves the job to failed.
	Fail(ctx context.Context, sessionID string, jobErr JobError) error

	// Delete removes the session's job. Deleting a missing job is a no-op.
	Delete(ctx context.Context, sessionID string) error
}
