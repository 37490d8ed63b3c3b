package detect

import (
	"testing"

	"interview-backend/internal/shared/config"
	"interview-backend/internal/vision"
)

func handAt(x, y float64) vision.HandLandmarks {
	return vision.HandLandmarks{
		Wrist:      vision.Point{X: x, Y: y},
		Fingertips: []vision.Point{{X: x, Y: y - 0.02}},
	}
}

func testFaceBounds() *vision.Rect {
	return &vision.Rect{MinX: 0.3, MinY: 0.3, MaxX: 0.7, MaxY: 0.85}
}

func TestGestureFaceTouchEdgeTriggered(t *testing.T) {
	cfg := config.DefaultTuning().Gesture
	bounds := testFaceBounds()
	st := GestureState{}

	// Sustained touch over three frames counts once.
	for i := 0; i < 3; i++ {
		m, next := Gesture([]vision.HandLandmarks{handAt(0.5, 0.6)}, bounds, st, cfg)
		st = next
		if !m.FaceTouching {
			t.Fatalf("frame %d: FaceTouching = false for a hand on the face", i)
		}
	}
	if st.TouchCount != 1 {
		t.Fatalf("TouchCount = %d, want 1 after sustained touch", st.TouchCount)
	}

	// Hand moves away, then touches again: second touch.
	m, st := Gesture([]vision.HandLandmarks{handAt(0.1, 0.95)}, bounds, st, cfg)
	if m.FaceTouching {
		t.Error("FaceTouching = true for a lowered hand")
	}
	m, st = Gesture([]vision.HandLandmarks{handAt(0.5, 0.6)}, bounds, st, cfg)
	if st.TouchCount != 2 {
		t.Errorf("TouchCount = %d, want 2", st.TouchCount)
	}
	if m.FaceTouchCount != 2 {
		t.Errorf("metric FaceTouchCount = %d, want 2", m.FaceTouchCount)
	}
}

func TestGestureNoHandsResetsTouchEdge(t *testing.T) {
	cfg := config.DefaultTuning().Gesture
	bounds := testFaceBounds()

	_, st := Gesture([]vision.HandLandmarks{handAt(0.5, 0.6)}, bounds, GestureState{}, cfg)
	_, st = Gesture(nil, bounds, st, cfg)
	_, st = Gesture([]vision.HandLandmarks{handAt(0.5, 0.6)}, bounds, st, cfg)

	if st.TouchCount != 2 {
		t.Errorf("TouchCount = %d, want 2 (touch re-armed by empty frame)", st.TouchCount)
	}
}

func TestGestureNilFaceBoundsSkipsTouch(t *testing.T) {
	cfg := config.DefaultTuning().Gesture

	m, st := Gesture([]vision.HandLandmarks{handAt(0.5, 0.6)}, nil, GestureState{}, cfg)
	if m.FaceTouching {
		t.Error("FaceTouching = true without a face")
	}
	if st.TouchCount != 0 {
		t.Errorf("TouchCount = %d, want 0", st.TouchCount)
	}
}

func TestGestureFidgetFromMovementVariance(t *testing.T) {
	cfg := config.DefaultTuning().Gesture
	st := GestureState{}

	// Alternating wrist positions 0.15 apart: variance above the fidget
	// threshold, below the excessive one.
	var fidget, excessive bool
	for i := 0; i < cfg.FidgetWindow; i++ {
		x := 0.2
		if i%2 == 1 {
			x = 0.35
		}
		m, next := Gesture([]vision.HandLandmarks{handAt(x, 0.9)}, nil, st, cfg)
		st = next
		fidget, excessive = m.HandFidgeting, m.ExcessiveGesturing
	}
	if !fidget {
		t.Error("HandFidgeting = false for restless hands")
	}
	if excessive {
		t.Error("ExcessiveGesturing = true for moderate movement")
	}
}

func TestGestureExcessiveMovement(t *testing.T) {
	cfg := config.DefaultTuning().Gesture
	st := GestureState{}

	var excessive bool
	for i := 0; i < cfg.FidgetWindow; i++ {
		x := 0.2
		if i%2 == 1 {
			x = 0.5
		}
		got, next := Gesture([]vision.HandLandmarks{handAt(x, 0.9)}, nil, st, cfg)
		st = next
		excessive = got.ExcessiveGesturing
	}
	if !excessive {
		t.Error("ExcessiveGesturing = false for large swings")
	}
}

func TestGestureStillHands(t *testing.T) {
	cfg := config.DefaultTuning().Gesture
	st := GestureState{}

	var m bool
	for i := 0; i < cfg.FidgetWindow; i++ {
		got, next := Gesture([]vision.HandLandmarks{handAt(0.2, 0.9)}, nil, st, cfg)
		st = next
		m = got.HandFidgeting
	}
	if m {
		t.Error("HandFidgeting = true for still hands")
	}
}
