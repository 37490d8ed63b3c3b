// Package analysis orchestrates full-session analysis jobs: media
// retrieval, the behavioral batch pass, transcript metrics, insight
// generation and the combined result.
package analysis

import (
	"time"

	"interview-backend/internal/insight"
	"interview-backend/internal/session"
	"interview-backend/internal/transcript"
)

// Job statuses. Transitions only move forward: pending -> in_progress ->
// completed or failed. Terminal jobs never change again.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Pipeline stages, reported in progress messages and failure records.
const (
	StageRetrieveVideo = "retrieve_video"
	StageAnalyzeVideo  = "analyze_video"
	StageTranscript    = "transcript"
	StageInsight       = "insight"
	StageCombine       = "combine"
)

// Result sections that can be absent from a degraded result.
const (
	SectionTranscript    = "transcript"
	SectionCommunication = "communication"
	SectionInsight       = "insight"
)

// JobError describes why a job failed. Messages are sanitized before
// persistence; stack traces never leave the process.
type JobError struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OverallScore is the combined assessment of both channels.
type OverallScore struct {
	Combined float64 `json:"combined"`
	Grade    string  `json:"grade"`
}

// Result is the completed analysis of one session. CommunicationScore,
// Transcript and Insight are absent when their stages degraded;
// MissingSections names what is absent.
type Result struct {
	SessionID          string              `json:"sessionId"`
	Overall            OverallScore        `json:"overall"`
	CVScore            float64             `json:"cvScore"`
	CommunicationScore *float64            `json:"communicationScore,omitempty"`
	Aggregate          session.Aggregate   `json:"aggregate"`
	Transcript         *transcript.Metrics `json:"transcript,omitempty"`
	Insight            *insight.Insight    `json:"insight,omitempty"`
	MissingSections    []string            `json:"missingSections,omitempty"`
}

// Job is one analysis run for a session. At most one job exists per
// session id at a time.
type Job struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"sessionId"`
	ExternalRef  string     `json:"externalRef,omitempty"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	StageMessage string     `json:"stageMessage,omitempty"`
	Result       *Result    `json:"result,omitempty"`
	Error        *JobError  `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Active reports whether the job is still pending or running.
func (j Job) Active() bool {
	return j.Status == StatusPending || j.Status == StatusInProgress
}

// statusRank orders statuses so transitions can be checked to only move
// forward.
func statusRank(status string) int {
	switch status {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}
