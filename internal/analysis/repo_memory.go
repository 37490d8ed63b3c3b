package analysis

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	bySession map[string]Job
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bySession: make(map[string]Job)}
}

// GetOrCreateForSession returns the blocking job for the session or stores
// the given one.
func (r *MemoryRepo) GetOrCreateForSession(ctx context.Context, job Job) (Job, bool, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.bySession[job.SessionID]
	if ok && existing.Status != StatusFailed {
		return existing, false, nil
	}

	job.UpdatedAt = job.CreatedAt
	r.bySession[job.SessionID] = job
	return job, true, nil
}

// GetBySession returns the session's job.
func (r *MemoryRepo) GetBySession(ctx context.Context, sessionID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.bySession[sessionID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// MarkRunning moves a pending job to in_progress.
func (r *MemoryRepo) MarkRunning(ctx context.Context, sessionID string) error {
	return r.update(ctx, sessionID, func(job *Job) error {
		if statusRank(StatusInProgress) < statusRank(job.Status) {
			return ErrInvalidTransition
		}
		job.Status = StatusInProgress
		if job.StartedAt == nil {
			now := time.Now().UTC()
			job.StartedAt = &now
		}
		return nil
	})
}

// UpdateProgress advances the progress of a running job. A lower progress
// value is ignored so concurrent reporters cannot move the bar backwards.
func (r *MemoryRepo) UpdateProgress(ctx context.Context, sessionID string, progress int, message string) error {
	return r.update(ctx, sessionID, func(job *Job) error {
		if job.Status != StatusInProgress {
			return ErrInvalidTransition
		}
		if progress > job.Progress {
			job.Progress = progress
		}
		job.StageMessage = message
		return nil
	})
}

// Complete stores the result and finishes the job.
func (r *MemoryRepo) Complete(ctx context.Context, sessionID string, result Result) error {
	return r.update(ctx, sessionID, func(job *Job) error {
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return ErrInvalidTransition
		}
		job.Status = StatusCompleted
		job.Progress = 100
		job.StageMessage = ""
		job.Result = &result
		now := time.Now().UTC()
		job.CompletedAt = &now
		return nil
	})
}

// Fail records the failure and finishes the job.
func (r *MemoryRepo) Fail(ctx context.Context, sessionID string, jobErr JobError) error {
	return r.update(ctx, sessionID, func(job *Job) error {
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return ErrInvalidTransition
		}
		job.Status = StatusFailed
		job.Error = &jobErr
		now := time.Now().UTC()
		job.CompletedAt = &now
		return nil
	})
}

// Delete removes the session's job.
func (r *MemoryRepo) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.bySession, sessionID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepo) update(ctx context.Context, sessionID string, mutate func(*Job) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.bySession[sessionID]
	if !ok {
		return ErrNotFound
	}
	if err := mutate(&job); err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()
	r.bySession[sessionID] = job
	return nil
}
