// Package insight defines the contract with the generative text service
// that annotates an analysis with free-text feedback.
package insight

import (
	"context"
	"errors"

	"interview-backend/internal/session"
	"interview-backend/internal/transcript"
)

// Input is the structured material the generator builds its prompt from.
// Transcript is nil when the job degraded to a CV-only result.
type Input struct {
	SessionID  string
	Aggregate  session.Aggregate
	Transcript *transcript.Metrics
}

// TokenUsage accounts for generator consumption.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Insight is the partitioned free-text feedback.
type Insight struct {
	Summary         string     `json:"summary"`
	Strengths       []string   `json:"strengths"`
	Improvements    []string   `json:"improvements"`
	Recommendations []string   `json:"recommendations"`
	Usage           TokenUsage `json:"usage"`
}

// Generator produces insight text from analysis metrics. Implementations
// are swappable black boxes.
type Generator interface {
	Generate(ctx context.Context, input Input) (*Insight, error)
}

// ErrNotConfigured is returned by the placeholder generator.
var ErrNotConfigured = errors.New("insight generator not configured")

// Placeholder is used when no gateway is configured; jobs then complete
// without an insight section.
type Placeholder struct{}

// Generate returns ErrNotConfigured.
func (Placeholder) Generate(ctx context.Context, input Input) (*Insight, error) {
	_ = ctx
	_ = input
	return nil, ErrNotConfigured
}
