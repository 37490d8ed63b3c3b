package gateway

import (
	"encoding/json"
	"fmt"

	"interview-backend/internal/insight"
)

const promptTemplate = `You are an expert interview coach reviewing one candidate session.

You are given the behavioral aggregate of the video analysis and, when
available, the spoken-language metrics of the transcript. Ground every
statement in these numbers; do not invent events that are not supported
by them.

Return ONLY valid JSON matching this schema:
{
  "summary": "",
  "strengths": ["", "", ""],
  "improvements": ["", "", ""],
  "recommendations": ["", "", "", "", ""]
}

Rules:
- summary: 2-4 sentences on overall engagement and communication.
- strengths: exactly 3 concrete observations.
- improvements: exactly 3 concrete observations.
- recommendations: 5 to 7 actionable items, most impactful first.
- Do not wrap the JSON in markdown fences or add commentary.

BEHAVIORAL AGGREGATE:
%s

TRANSCRIPT METRICS:
%s
`

// buildPrompt renders the generator prompt from the structured input.
func buildPrompt(input insight.Input) string {
	aggJSON, _ := json.MarshalIndent(input.Aggregate, "", "  ")

	transcriptSection := "not available (video-only analysis)"
	if input.Transcript != nil {
		tJSON, _ := json.MarshalIndent(input.Transcript, "", "  ")
		transcriptSection = string(tJSON)
	}

	return fmt.Sprintf(promptTemplate, string(aggJSON), transcriptSection)
}
