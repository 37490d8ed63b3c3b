package detect

import (
	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/vision"
)

// GestureState carries the cumulative face-touch counter and the recent
// hand-position window used for fidget detection.
type GestureState struct {
	TouchCount int

	touchActive bool
	recent      []vision.Point
}

// Gesture flags face touching and nervous hand movement for one frame.
// faceBounds may be nil when no face is visible; face touching then cannot
// be detected but movement tracking continues. The face-touch counter is
// edge-triggered so a sustained touch counts once.
func Gesture(hands []vision.HandLandmarks, faceBounds *vision.Rect, st GestureState, cfg config.GestureTuning) (session.GestureMetrics, GestureState) {
	m := session.GestureMetrics{}

	if len(hands) == 0 {
		st.touchActive = false
		m.FaceTouchCount = st.TouchCount
		return m, st
	}

	if faceBounds != nil {
		for _, hand := range hands {
			if handNearRect(hand, *faceBounds, cfg.FaceTouchMargin) {
				m.FaceTouching = true
				break
			}
		}
	}
	if m.FaceTouching && !st.touchActive {
		st.TouchCount++
	}
	st.touchActive = m.FaceTouching
	m.FaceTouchCount = st.TouchCount

	st.recent = append(st.recent, meanWrist(hands))
	if window := cfg.FidgetWindow; window > 0 && len(st.recent) > window {
		st.recent = st.recent[len(st.recent)-window:]
	}

	variance := positionVariance(st.recent)
	m.HandFidgeting = variance > cfg.FidgetVariance
	m.ExcessiveGesturing = variance > cfg.ExcessiveVariance

	return m, st
}

func handNearRect(hand vision.HandLandmarks, bounds vision.Rect, margin float64) bool {
	for _, tip := range hand.Fingertips {
		if bounds.Contains(tip, margin) {
			return true
		}
	}
	return bounds.Contains(hand.Wrist, margin)
}

func meanWrist(hands []vision.HandLandmarks) vision.Point {
	var c vision.Point
	for _, h := range hands {
		c.X += h.Wrist.X
		c.Y += h.Wrist.Y
	}
	n := float64(len(hands))
	c.X /= n
	c.Y /= n
	return c
}

// positionVariance is the summed X/Y variance of the recent positions.
func positionVariance(points []vision.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	var meanX, meanY float64
	for _, p := range points {
		meanX += p.X
		meanY += p.Y
	}
	n := float64(len(points))
	meanX /= n
	meanY /= n

	var v float64
	for _, p := range points {
		v += (p.X-meanX)*(p.X-meanX) + (p.Y-meanY)*(p.Y-meanY)
	}
	return v / n
}
