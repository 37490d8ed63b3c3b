package detect

import (
	"testing"

	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/vision"
)

func eyePoints(cx, cy, open float64) [6]vision.Point {
	half := open / 2
	return [6]vision.Point{
		{X: cx - 0.05, Y: cy},
		{X: cx - 0.02, Y: cy - half},
		{X: cx + 0.02, Y: cy - half},
		{X: cx + 0.05, Y: cy},
		{X: cx + 0.02, Y: cy + half},
		{X: cx - 0.02, Y: cy + half},
	}
}

func mouthPoints(cx, cy, open float64) [8]vision.Point {
	half := open / 2
	return [8]vision.Point{
		{X: cx - 0.1, Y: cy},
		{X: cx - 0.05, Y: cy - half},
		{X: cx, Y: cy - half},
		{X: cx + 0.05, Y: cy - half},
		{X: cx + 0.1, Y: cy},
		{X: cx + 0.05, Y: cy + half},
		{X: cx, Y: cy + half},
		{X: cx - 0.05, Y: cy + half},
	}
}

// face builds landmarks with a chosen eye opening and mouth opening. The
// eye aspect ratio ends up at open*10, the mouth aspect ratio at open*5.
func face(eyeOpen, mouthOpen float64) *vision.FaceLandmarks {
	return &vision.FaceLandmarks{
		LeftEye:  eyePoints(0.42, 0.45, eyeOpen),
		RightEye: eyePoints(0.58, 0.45, eyeOpen),
		Mouth:    mouthPoints(0.5, 0.68, mouthOpen),
		NoseTip:  vision.Point{X: 0.5, Y: 0.625},
		Chin:     vision.Point{X: 0.5, Y: 0.8},
		Bounds:   vision.Rect{MinX: 0.3, MinY: 0.3, MaxX: 0.7, MaxY: 0.85},
	}
}

func TestExpressionCalmBaseline(t *testing.T) {
	cfg := config.DefaultTuning().Expression

	m, st := Expression(face(0.03, 0.04), ExpressionState{}, cfg)
	if m.Label != session.ExpressionCalm {
		t.Errorf("Label = %q, want calm", m.Label)
	}
	if m.IsBlinking {
		t.Error("IsBlinking = true for open eyes")
	}
	if m.Stress != session.StressLow {
		t.Errorf("Stress = %q, want low", m.Stress)
	}
	if st.BlinkCount != 0 {
		t.Errorf("BlinkCount = %d, want 0", st.BlinkCount)
	}
}

func TestExpressionBlinkEdgeTriggered(t *testing.T) {
	cfg := config.DefaultTuning().Expression
	st := ExpressionState{}
	var m session.ExpressionMetrics

	// Three consecutive closed frames count one blink.
	for i := 0; i < 3; i++ {
		m, st = Expression(face(0.01, 0.04), st, cfg)
		if !m.IsBlinking {
			t.Fatalf("frame %d: IsBlinking = false for closed eyes", i)
		}
	}
	if st.BlinkCount != 1 {
		t.Fatalf("BlinkCount = %d, want 1 after sustained closure", st.BlinkCount)
	}

	// Reopen, close again: second blink.
	_, st = Expression(face(0.03, 0.04), st, cfg)
	m, st = Expression(face(0.01, 0.04), st, cfg)
	if st.BlinkCount != 2 {
		t.Errorf("BlinkCount = %d, want 2", st.BlinkCount)
	}
	if m.BlinkCount != 2 {
		t.Errorf("metric BlinkCount = %d, want 2", m.BlinkCount)
	}
}

func TestExpressionDrowsyNeedsSustainedLowEAR(t *testing.T) {
	cfg := config.DefaultTuning().Expression
	st := ExpressionState{}
	var m session.ExpressionMetrics

	// Half-closed eyes: below the drowsy threshold, above blink. The mouth
	// stays relaxed but open enough to rule out the sad classification.
	for i := 0; i < cfg.DrowsyFrames; i++ {
		m, st = Expression(face(0.022, 0.06), st, cfg)
	}
	if m.Label != session.ExpressionDrowsy {
		t.Errorf("Label = %q, want drowsy after %d low frames", m.Label, cfg.DrowsyFrames)
	}
	if m.Stress != session.StressHigh {
		t.Errorf("Stress = %q, want high", m.Stress)
	}

	// One open frame resets the streak.
	m, st = Expression(face(0.03, 0.04), st, cfg)
	if m.Label == session.ExpressionDrowsy {
		t.Error("still drowsy after recovery frame")
	}
}

func TestExpressionSmilingAndSurprised(t *testing.T) {
	cfg := config.DefaultTuning().Expression

	m, _ := Expression(face(0.03, 0.12), ExpressionState{}, cfg)
	if m.Label != session.ExpressionSmiling {
		t.Errorf("Label = %q, want smiling for MAR %.2f", m.Label, m.MouthAspect)
	}

	m, _ = Expression(face(0.04, 0.04), ExpressionState{}, cfg)
	if m.Label != session.ExpressionSurprised {
		t.Errorf("Label = %q, want surprised for EAR %.2f", m.Label, m.EyeAspect.Avg)
	}
	if m.Stress != session.StressModerate {
		t.Errorf("Stress = %q, want moderate", m.Stress)
	}
}

func TestExpressionNilFaceKeepsBlinkCount(t *testing.T) {
	cfg := config.DefaultTuning().Expression
	st := ExpressionState{BlinkCount: 4}

	m, st := Expression(nil, st, cfg)
	if m.Label != session.ExpressionNeutral {
		t.Errorf("Label = %q, want neutral", m.Label)
	}
	if m.BlinkCount != 4 || st.BlinkCount != 4 {
		t.Errorf("blink count changed: metric=%d state=%d", m.BlinkCount, st.BlinkCount)
	}

	// A blink straddling the gap still counts once per closure.
	m, st = Expression(face(0.01, 0.04), st, cfg)
	if st.BlinkCount != 5 {
		t.Errorf("BlinkCount = %d, want 5", st.BlinkCount)
	}
}
