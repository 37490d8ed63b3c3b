// Package fusion combines the four detector outputs into one attention
// score and a discrete engagement state.
package fusion

import (
	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
)

// Engine fuses detector outputs frame by frame. It keeps the hysteresis
// streaks and the cumulative alert counter for one session, so it must not
// be shared across sessions or mutated concurrently.
type Engine struct {
	cfg config.FusionTuning

	state            string
	engagedStreak    int
	distractedStreak int
	alertCount       int
}

// NewEngine builds a fusion engine with the given weights and thresholds.
func NewEngine(cfg config.FusionTuning) *Engine {
	return &Engine{cfg: cfg, state: session.EngagementNeutral}
}

// Fuse computes the attention metrics for one frame. The discrete state uses
// hysteresis: engaged and distracted both require their score band to be
// sustained for the configured number of frames, otherwise the state is
// neutral. A transition into distracted increments the alert counter exactly
// once.
func (e *Engine) Fuse(faceDetected bool, expr session.ExpressionMetrics, head session.HeadPoseMetrics, posture session.PostureMetrics, gesture session.GestureMetrics) session.AttentionMetrics {
	score := e.score(faceDetected, expr, head, posture, gesture)

	switch {
	case score >= e.cfg.EngagedThreshold:
		e.engagedStreak++
		e.distractedStreak = 0
	case score < e.cfg.DistractedThreshold:
		e.distractedStreak++
		e.engagedStreak = 0
	default:
		e.engagedStreak = 0
		e.distractedStreak = 0
	}

	next := session.EngagementNeutral
	if e.engagedStreak >= e.cfg.SustainFrames {
		next = session.EngagementEngaged
	} else if e.distractedStreak >= e.cfg.SustainFrames {
		next = session.EngagementDistracted
	}
	if next == session.EngagementDistracted && e.state != session.EngagementDistracted {
		e.alertCount++
	}
	e.state = next

	return session.AttentionMetrics{
		Score:        score,
		State:        e.state,
		IsEngaged:    e.state == session.EngagementEngaged,
		IsDistracted: e.state == session.EngagementDistracted,
		AlertCount:   e.alertCount,
	}
}

func (e *Engine) score(faceDetected bool, expr session.ExpressionMetrics, head session.HeadPoseMetrics, posture session.PostureMetrics, gesture session.GestureMetrics) float64 {
	c := e.cfg
	weightSum := c.ExpressionWeight + c.PostureWeight + c.GazeWeight + c.GestureWeight
	if weightSum <= 0 {
		return 0
	}

	var es, gs float64
	if faceDetected {
		es = expressionSub(expr.Label)
		gs = gazeSub(head)
	}

	total := es*c.ExpressionWeight +
		postureSub(posture.Status)*c.PostureWeight +
		gs*c.GazeWeight +
		gestureSub(gesture)*c.GestureWeight

	score := total / weightSum
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func expressionSub(label string) float64 {
	switch label {
	case session.ExpressionSmiling:
		return 1.0
	case session.ExpressionCalm:
		return 0.9
	case session.ExpressionNeutral:
		return 0.7
	case session.ExpressionSurprised:
		return 0.6
	case session.ExpressionSad:
		return 0.4
	case session.ExpressionDrowsy:
		return 0.25
	default:
		return 0.5
	}
}

func gazeSub(head session.HeadPoseMetrics) float64 {
	if head.IsLookingAtCamera {
		return 1.0
	}
	switch head.Direction {
	case session.GazeCenter:
		return 0.8
	case session.GazeLeft, session.GazeRight:
		return 0.35
	case session.GazeUp, session.GazeDown:
		return 0.3
	default:
		return 0.2
	}
}

func postureSub(status string) float64 {
	switch status {
	case session.PostureUpright:
		return 1.0
	case session.PostureLeaning:
		return 0.6
	case session.PostureSlouching:
		return 0.25
	default:
		return 0.5
	}
}

func gestureSub(g session.GestureMetrics) float64 {
	sub := 1.0
	if g.FaceTouching {
		sub -= 0.4
	}
	if g.HandFidgeting {
		sub -= 0.3
	}
	if g.ExcessiveGesturing {
		sub -= 0.2
	}
	if sub < 0 {
		return 0
	}
	return sub
}
