package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"interview-backend/internal/frames"
	"interview-backend/internal/insight"
	"interview-backend/internal/logger"
	"interview-backend/internal/media"
	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/transcript"
)

// Stage progress checkpoints. Progress only moves forward through them.
const (
	progressRetrieved  = 10
	progressAnalyzed   = 55
	progressTranscript = 70
	progressInsight    = 85
)

// Service runs analysis jobs. Start returns immediately; the pipeline runs
// in a background goroutine and reports through the repo.
type Service struct {
	Repo        Repo
	Frames      *frames.Service
	Media       media.Retriever
	Transcripts *transcript.Analyzer
	Insight     insight.Generator
	Scoring     config.ScoringTuning

	MaxStageRetries int

	log *logrus.Entry
}

// NewService constructs the orchestrator service.
func NewService(repo Repo, fr *frames.Service, retriever media.Retriever, ta *transcript.Analyzer, gen insight.Generator, tuning config.Tuning, log *logger.Logger) *Service {
	return &Service{
		Repo:            repo,
		Frames:          fr,
		Media:           retriever,
		Transcripts:     ta,
		Insight:         gen,
		Scoring:         tuning.Scoring,
		MaxStageRetries: tuning.Batch.MaxStageRetries,
		log:             log.Component("analysis"),
	}
}

// Start launches an analysis for the session, or returns the handle of the
// job already blocking it. The boolean reports whether a new job started.
func (s *Service) Start(ctx context.Context, sessionID, externalRef string) (Job, bool, error) {
	if sessionID == "" {
		return Job{}, false, errors.New("sessionID is required")
	}

	job := Job{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		ExternalRef: externalRef,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	stored, created, err := s.Repo.GetOrCreateForSession(ctx, job)
	if err != nil {
		return Job{}, false, err
	}
	if created {
		metrics.IncJobStarted()
		s.log.WithField("session_id", sessionID).WithField("job_id", stored.ID).Info("analysis started")
		go s.run(context.Background(), stored)
	}
	return stored, created, nil
}

// Get returns the session's job.
func (s *Service) Get(ctx context.Context, sessionID string) (Job, error) {
	if sessionID == "" {
		return Job{}, errors.New("sessionID is required")
	}
	return s.Repo.GetBySession(ctx, sessionID)
}

// Result returns the completed result, or ErrNotFinished while the job is
// still pending or running.
func (s *Service) Result(ctx context.Context, sessionID string) (Result, error) {
	job, err := s.Get(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	if job.Status != StatusCompleted || job.Result == nil {
		return Result{}, ErrNotFinished
	}
	return *job.Result, nil
}

// Clear deletes the session's job and all live pipeline state, so a fresh
// start begins from zero.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("sessionID is required")
	}
	if err := s.Repo.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.Frames.Clear(sessionID)
	return nil
}

func (s *Service) run(ctx context.Context, job Job) {
	startedAt := time.Now().UTC()
	stage := StageRetrieveVideo
	defer func() {
		if r := recover(); r != nil {
			s.fail(job.SessionID, stage, fmt.Errorf("panic: %v", r), startedAt)
		}
	}()

	if err := s.Repo.MarkRunning(ctx, job.SessionID); err != nil {
		s.fail(job.SessionID, stage, fmt.Errorf("mark running: %w", err), startedAt)
		return
	}
	s.progress(ctx, job.SessionID, 0, "retrieving session video")

	var src media.FrameSource
	err := s.retryStage(ctx, func() error {
		var e error
		src, e = s.Media.Video(ctx, job.SessionID)
		if errors.Is(e, media.ErrNotFound) {
			return backoff.Permanent(e)
		}
		return e
	})
	if err != nil {
		s.fail(job.SessionID, stage, err, startedAt)
		return
	}
	s.progress(ctx, job.SessionID, progressRetrieved, "analyzing video frames")

	stage = StageAnalyzeVideo
	agg, err := s.Frames.AnalyzeVideo(ctx, job.SessionID, src)
	if err != nil {
		s.fail(job.SessionID, stage, err, startedAt)
		return
	}
	s.progress(ctx, job.SessionID, progressAnalyzed, "analyzing transcript")

	// A missing or unreadable transcript degrades the job to a CV-only
	// result instead of failing it.
	stage = StageTranscript
	var tm *transcript.Metrics
	var missing []string
	var text string
	var duration float64
	err = s.retryStage(ctx, func() error {
		var e error
		text, duration, e = s.Media.Transcript(ctx, job.SessionID)
		if errors.Is(e, media.ErrNotFound) {
			return backoff.Permanent(e)
		}
		return e
	})
	if err != nil {
		s.log.WithField("session_id", job.SessionID).WithField("error", err.Error()).
			Warn("transcript unavailable, continuing with video-only result")
		missing = append(missing, SectionTranscript, SectionCommunication)
	} else {
		m := s.Transcripts.Analyze(text, duration)
		tm = &m
	}
	s.progress(ctx, job.SessionID, progressTranscript, "generating insight")

	stage = StageInsight
	ins := s.generateInsight(ctx, job.SessionID, agg, tm)
	if ins == nil {
		missing = append(missing, SectionInsight)
	}
	s.progress(ctx, job.SessionID, progressInsight, "combining results")

	stage = StageCombine
	result := buildResult(job.SessionID, agg, tm, ins, missing, s.Scoring)
	if err := s.Repo.Complete(ctx, job.SessionID, result); err != nil {
		s.fail(job.SessionID, stage, fmt.Errorf("store result: %w", err), startedAt)
		return
	}

	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(float64(time.Since(startedAt)) / float64(time.Millisecond))
	s.log.WithField("session_id", job.SessionID).
		WithField("job_id", job.ID).
		WithField("combined_score", result.Overall.Combined).
		WithField("duration_ms", time.Since(startedAt).Milliseconds()).
		Info("analysis completed")
}

// generateInsight is best effort: any failure leaves the result without an
// insight section.
func (s *Service) generateInsight(ctx context.Context, sessionID string, agg session.Aggregate, tm *transcript.Metrics) *insight.Insight {
	if s.Insight == nil {
		return nil
	}
	ins, err := s.Insight.Generate(ctx, insight.Input{
		SessionID:  sessionID,
		Aggregate:  agg,
		Transcript: tm,
	})
	if err != nil {
		if !errors.Is(err, insight.ErrNotConfigured) {
			metrics.IncInsightRetry()
			s.log.WithField("session_id", sessionID).WithField("error", err.Error()).
				Warn("insight generation failed, continuing without it")
		}
		return nil
	}
	return ins
}

func (s *Service) progress(ctx context.Context, sessionID string, progress int, message string) {
	if err := s.Repo.UpdateProgress(ctx, sessionID, progress, message); err != nil {
		s.log.WithField("session_id", sessionID).WithField("error", err.Error()).
			Warn("progress update failed")
	}
}

// retryStage retries an external call a bounded number of times with
// exponential backoff. Permanent errors short-circuit.
func (s *Service) retryStage(ctx context.Context, op func() error) error {
	retries := s.MaxStageRetries
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries))
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func (s *Service) fail(sessionID, stage string, err error, startedAt time.Time) {
	jobErr := JobError{
		Stage:   stage,
		Code:    classifyFailure(stage, err),
		Message: sanitizeError(err),
	}
	// The job record must reflect the failure even when the run context is
	// gone.
	if updateErr := s.Repo.Fail(context.Background(), sessionID, jobErr); updateErr != nil {
		s.log.WithField("session_id", sessionID).WithField("error", updateErr.Error()).
			Error("failed to record job failure")
	}
	metrics.IncJobFailed()
	metrics.ObserveJobDurationMs(float64(time.Since(startedAt)) / float64(time.Millisecond))
	s.log.WithField("session_id", sessionID).
		WithField("stage", stage).
		WithField("code", jobErr.Code).
		WithField("error", err.Error()).
		Error("analysis failed")
}

func classifyFailure(stage string, err error) string {
	if errors.Is(err, media.ErrNotFound) {
		return ErrorCodeMediaMissing
	}
	switch stage {
	case StageAnalyzeVideo:
		return ErrorCodeExtractor
	case StageInsight:
		return ErrorCodeInsight
	}
	msg := strings.ToLower(errMessage(err))
	if strings.Contains(msg, "store result") || strings.Contains(msg, "mark running") || strings.Contains(msg, "database") {
		return ErrorCodeStorage
	}
	return ErrorCodeInternal
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// sanitizeError flattens and truncates an error so nothing unbounded or
// multi-line reaches the job record.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
