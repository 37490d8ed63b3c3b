package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Status guards live in the WHERE
// clauses so the forward-only machine holds even across processes.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `session_id, id, external_ref, status, progress, stage_message,
       result, error, created_at, started_at, completed_at, updated_at`

// GetOrCreateForSession returns the blocking job for the session or inserts
// the given one.
func (r *PGRepo) GetOrCreateForSession(ctx context.Context, job Job) (Job, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, false, err
	}
	defer tx.Rollback()

	existing, err := getBySession(ctx, tx, job.SessionID, true)
	if err == nil && existing.Status != StatusFailed {
		if err := tx.Commit(); err != nil {
			return Job{}, false, err
		}
		return existing, false, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Job{}, false, err
	}

	const query = `
INSERT INTO analysis_jobs (session_id, id, external_ref, status, progress, stage_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (session_id) DO UPDATE SET
	id = EXCLUDED.id,
	external_ref = EXCLUDED.external_ref,
	status = EXCLUDED.status,
	progress = EXCLUDED.progress,
	stage_message = EXCLUDED.stage_message,
	result = NULL,
	error = NULL,
	created_at = EXCLUDED.created_at,
	started_at = NULL,
	completed_at = NULL,
	updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, query,
		job.SessionID, job.ID, job.ExternalRef, job.Status, job.Progress, job.StageMessage, job.CreatedAt,
	); err != nil {
		return Job{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return Job{}, false, err
	}
	job.UpdatedAt = job.CreatedAt
	return job, true, nil
}

// GetBySession returns the session's job.
func (r *PGRepo) GetBySession(ctx context.Context, sessionID string) (Job, error) {
	return getBySession(ctx, r.DB, sessionID, false)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getBySession(ctx context.Context, db queryer, sessionID string, forUpdate bool) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE session_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var j Job
	var externalRef, stageMessage sql.NullString
	var result, jobErr sql.NullString
	var startedAt, completedAt sql.NullTime
	err := db.QueryRowContext(ctx, query, sessionID).Scan(
		&j.SessionID,
		&j.ID,
		&externalRef,
		&j.Status,
		&j.Progress,
		&stageMessage,
		&result,
		&jobErr,
		&j.CreatedAt,
		&startedAt,
		&completedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	j.ExternalRef = externalRef.String
	j.StageMessage = stageMessage.String
	if result.Valid {
		var res Result
		if err := json.Unmarshal([]byte(result.String), &res); err != nil {
			return Job{}, fmt.Errorf("decode job result: %w", err)
		}
		j.Result = &res
	}
	if jobErr.Valid {
		var je JobError
		if err := json.Unmarshal([]byte(jobErr.String), &je); err != nil {
			return Job{}, fmt.Errorf("decode job error: %w", err)
		}
		j.Error = &je
	}
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return j, nil
}

// MarkRunning moves a pending job to in_progress.
func (r *PGRepo) MarkRunning(ctx context.Context, sessionID string) error {
	const query = `
UPDATE analysis_jobs
SET status = $2, started_at = COALESCE(started_at, $3), updated_at = $3
WHERE session_id = $1 AND status IN ($4, $2)`
	res, err := r.DB.ExecContext(ctx, query, sessionID, StatusInProgress, time.Now().UTC(), StatusPending)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, sessionID)
}

// UpdateProgress advances a running job. GREATEST keeps progress monotone.
func (r *PGRepo) UpdateProgress(ctx context.Context, sessionID string, progress int, message string) error {
	const query = `
UPDATE analysis_jobs
SET progress = GREATEST(progress, $2), stage_message = $3, updated_at = $4
WHERE session_id = $1 AND status = $5`
	res, err := r.DB.ExecContext(ctx, query, sessionID, progress, message, time.Now().UTC(), StatusInProgress)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, sessionID)
}

// Complete stores the result and finishes the job.
func (r *PGRepo) Complete(ctx context.Context, sessionID string, result Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	const query = `
UPDATE analysis_jobs
SET status = $2, progress = 100, stage_message = '', result = $3, completed_at = $4, updated_at = $4
WHERE session_id = $1 AND status NOT IN ($5, $6)`
	res, err := r.DB.ExecContext(ctx, query,
		sessionID, StatusCompleted, payload, time.Now().UTC(), StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, sessionID)
}

// Fail records the failure and finishes the job.
func (r *PGRepo) Fail(ctx context.Context, sessionID string, jobErr JobError) error {
	payload, err := json.Marshal(jobErr)
	if err != nil {
		return err
	}
	const query = `
UPDATE analysis_jobs
SET status = $2, error = $3, completed_at = $4, updated_at = $4
WHERE session_id = $1 AND status NOT IN ($5, $6)`
	res, err := r.DB.ExecContext(ctx, query,
		sessionID, StatusFailed, payload, time.Now().UTC(), StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, sessionID)
}

// Delete removes the session's job.
func (r *PGRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM analysis_jobs WHERE session_id = $1`, sessionID)
	return err
}

// checkAffected distinguishes a missing job from a guarded transition.
func (r *PGRepo) checkAffected(ctx context.Context, res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetBySession(ctx, sessionID); errors.Is(err, ErrNotFound) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return ErrInvalidTransition
}

var _ Repo = (*PGRepo)(nil)
