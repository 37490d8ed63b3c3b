package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"session_id", "id", "external_ref", "status", "progress", "stage_message",
		"result", "error", "created_at", "started_at", "completed_at", "updated_at",
	})
}

func TestPGRepoGetBySession(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs WHERE session_id").
		WithArgs("sess-1").
		WillReturnRows(jobRows().AddRow(
			"sess-1", "job-1", "ref-1", StatusInProgress, 55, "analyzing transcript",
			nil, nil, now, now, nil, now,
		))

	job, err := repo.GetBySession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if job.ID != "job-1" || job.Status != StatusInProgress || job.Progress != 55 {
		t.Errorf("job = %+v", job)
	}
	if job.StartedAt == nil || job.CompletedAt != nil {
		t.Errorf("timestamps: startedAt=%v completedAt=%v", job.StartedAt, job.CompletedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetBySessionDecodesError(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs WHERE session_id").
		WithArgs("sess-1").
		WillReturnRows(jobRows().AddRow(
			"sess-1", "job-1", nil, StatusFailed, 10, nil,
			nil, `{"stage":"retrieve_video","code":"MEDIA_MISSING","message":"media not found"}`,
			now, now, now, now,
		))

	job, err := repo.GetBySession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if job.Error == nil || job.Error.Code != ErrorCodeMediaMissing {
		t.Errorf("Error = %+v, want MEDIA_MISSING", job.Error)
	}
}

func TestPGRepoUpdateProgressGuardsStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Guarded update touches no rows; the job exists but is terminal.
	mock.ExpectExec("UPDATE analysis_jobs").
		WithArgs("sess-1", 70, "generating insight", sqlmock.AnyArg(), StatusInProgress).
		WillReturnResult(sqlmock.NewResult(0, 0))
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs WHERE session_id").
		WithArgs("sess-1").
		WillReturnRows(jobRows().AddRow(
			"sess-1", "job-1", nil, StatusCompleted, 100, "",
			nil, nil, now, now, now, now,
		))

	err := repo.UpdateProgress(context.Background(), "sess-1", 70, "generating insight")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoFailStoresError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE analysis_jobs").
		WithArgs("sess-1", StatusFailed, sqlmock.AnyArg(), sqlmock.AnyArg(), StatusCompleted, StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Fail(context.Background(), "sess-1", JobError{
		Stage:   StageAnalyzeVideo,
		Code:    ErrorCodeExtractor,
		Message: "extractor unavailable",
	})
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM analysis_jobs").
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
