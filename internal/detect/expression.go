package detect

import (
	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/vision"
)

// ExpressionState carries the per-session counters the expression detector
// needs across frames.
type ExpressionState struct {
	BlinkCount int

	blinkActive  bool
	lowEARStreak int
}

// Expression classifies the facial expression for one frame from eye and
// mouth aspect ratios. A nil face yields defaulted facial fields and leaves
// the cumulative blink count untouched; the caller marks the frame as
// face-less.
func Expression(face *vision.FaceLandmarks, st ExpressionState, cfg config.ExpressionTuning) (session.ExpressionMetrics, ExpressionState) {
	if face == nil {
		st.blinkActive = false
		st.lowEARStreak = 0
		return session.NeutralExpression(st.BlinkCount), st
	}

	left := eyeAspectRatio(face.LeftEye)
	right := eyeAspectRatio(face.RightEye)
	ear := (left + right) / 2
	mar := mouthAspectRatio(face.Mouth)

	m := session.ExpressionMetrics{
		EyeAspect:   session.EyeAspect{Left: left, Right: right, Avg: ear},
		MouthAspect: mar,
	}

	// Blink is edge-triggered: one closed frame is enough, but a sustained
	// closure counts once.
	m.IsBlinking = ear < cfg.BlinkEARThreshold
	if m.IsBlinking && !st.blinkActive {
		st.BlinkCount++
	}
	st.blinkActive = m.IsBlinking
	m.BlinkCount = st.BlinkCount

	if ear < cfg.DrowsyEARThreshold {
		st.lowEARStreak++
	} else {
		st.lowEARStreak = 0
	}

	switch {
	case st.lowEARStreak >= cfg.DrowsyFrames && mar < cfg.SmileMARThreshold/2:
		m.Label = session.ExpressionSad
		m.Confidence = clamp01(0.5 + float64(st.lowEARStreak-cfg.DrowsyFrames)*0.05)
	case st.lowEARStreak >= cfg.DrowsyFrames:
		m.Label = session.ExpressionDrowsy
		m.Confidence = clamp01(0.5 + float64(st.lowEARStreak-cfg.DrowsyFrames)*0.05)
	case mar > cfg.SmileMARThreshold:
		m.Label = session.ExpressionSmiling
		m.Confidence = clamp01(0.5 + (mar-cfg.SmileMARThreshold)*1.5)
	case ear > cfg.SurprisedEARThreshold:
		m.Label = session.ExpressionSurprised
		m.Confidence = clamp01(0.5 + (ear-cfg.SurprisedEARThreshold)*3)
	default:
		m.Label = session.ExpressionCalm
		m.Confidence = 0.6
	}

	switch {
	case m.Label == session.ExpressionDrowsy || m.Label == session.ExpressionSad || mar > cfg.WideMARThreshold:
		m.Stress = session.StressHigh
	case m.IsBlinking || m.Label == session.ExpressionSurprised:
		m.Stress = session.StressModerate
	default:
		m.Stress = session.StressLow
	}

	return m, st
}

// eyeAspectRatio computes the six-point EAR: the mean of the two vertical
// lid distances over the horizontal corner distance.
func eyeAspectRatio(eye [6]vision.Point) float64 {
	horizontal := dist(eye[0], eye[3])
	if horizontal == 0 {
		return 0
	}
	return (dist(eye[1], eye[5]) + dist(eye[2], eye[4])) / (2 * horizontal)
}

// mouthAspectRatio computes the eight-point MAR: the mean vertical opening
// over the corner-to-corner width.
func mouthAspectRatio(mouth [8]vision.Point) float64 {
	horizontal := dist(mouth[0], mouth[4])
	if horizontal == 0 {
		return 0
	}
	vertical := dist(mouth[1], mouth[7]) + dist(mouth[2], mouth[6]) + dist(mouth[3], mouth[5])
	return vertical / (3 * horizontal)
}
