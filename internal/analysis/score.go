package analysis

import (
	"interview-backend/internal/insight"
	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/transcript"
)

// buildResult assembles the final result from whatever sections survived.
// With no transcript the combined score is CV-only rather than averaging
// against a zero.
func buildResult(sessionID string, agg session.Aggregate, tm *transcript.Metrics, ins *insight.Insight, missing []string, cfg config.ScoringTuning) Result {
	res := Result{
		SessionID:       sessionID,
		CVScore:         agg.CVScore,
		Aggregate:       agg,
		Transcript:      tm,
		Insight:         ins,
		MissingSections: missing,
	}

	combined := agg.CVScore
	if tm != nil {
		comm := tm.Score
		res.CommunicationScore = &comm

		weightSum := cfg.CVWeight + cfg.CommunicationWeight
		if weightSum <= 0 {
			weightSum = 1
		}
		combined = (agg.CVScore*cfg.CVWeight + comm*cfg.CommunicationWeight) / weightSum
	}
	res.Overall = OverallScore{
		Combined: clampScore(combined),
		Grade:    transcript.Grade(clampScore(combined)),
	}
	return res
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
