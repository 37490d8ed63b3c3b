package detect

import (
	"math"
	"testing"

	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/vision"
)

// gazeFace positions the nose tip for a target yaw/pitch against the
// geometry built by face(): eye midline at (0.5, 0.45), face width 0.4,
// eye-to-chin span 0.35.
func gazeFace(yawDeg, pitchDeg float64) *vision.FaceLandmarks {
	f := face(0.03, 0.04)
	f.NoseTip.X = 0.5 + yawDeg/45*0.2
	f.NoseTip.Y = 0.45 + (0.5-pitchDeg/90)*0.35
	return f
}

func TestHeadPoseCenter(t *testing.T) {
	cfg := config.DefaultTuning().HeadPose

	m := HeadPose(gazeFace(0, 0), cfg)
	if math.Abs(m.Yaw) > 1e-6 || math.Abs(m.Pitch) > 1e-6 || math.Abs(m.Roll) > 1e-6 {
		t.Errorf("angles = %.2f/%.2f/%.2f, want all zero", m.Yaw, m.Pitch, m.Roll)
	}
	if m.Direction != session.GazeCenter {
		t.Errorf("Direction = %q, want center", m.Direction)
	}
	if !m.IsLookingAtCamera {
		t.Error("IsLookingAtCamera = false for a level head")
	}
}

func TestHeadPoseDirections(t *testing.T) {
	cfg := config.DefaultTuning().HeadPose

	tests := []struct {
		name       string
		yaw, pitch float64
		want       string
	}{
		{"right", 30, 0, session.GazeRight},
		{"left", -30, 0, session.GazeLeft},
		{"up", 0, 25, session.GazeUp},
		{"down", 0, -25, session.GazeDown},
		{"yaw dominates pitch", 30, 20, session.GazeRight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := HeadPose(gazeFace(tt.yaw, tt.pitch), cfg)
			if m.Direction != tt.want {
				t.Errorf("Direction = %q (yaw %.1f pitch %.1f), want %q", m.Direction, m.Yaw, m.Pitch, tt.want)
			}
			if m.IsLookingAtCamera {
				t.Error("IsLookingAtCamera = true for a turned head")
			}
		})
	}
}

func TestHeadPoseRollFromEyeSlope(t *testing.T) {
	cfg := config.DefaultTuning().HeadPose

	f := face(0.03, 0.04)
	for i := range f.RightEye {
		f.RightEye[i].Y += 0.05
	}
	m := HeadPose(f, cfg)
	if m.Roll <= 10 {
		t.Errorf("Roll = %.2f, want a clear positive tilt", m.Roll)
	}
}

func TestHeadPoseNilFace(t *testing.T) {
	m := HeadPose(nil, config.DefaultTuning().HeadPose)
	if m.Direction != session.GazeUnknown {
		t.Errorf("Direction = %q, want unknown", m.Direction)
	}
	if m.IsLookingAtCamera {
		t.Error("IsLookingAtCamera = true without a face")
	}
}

func TestHeadPoseDegenerateBounds(t *testing.T) {
	f := face(0.03, 0.04)
	f.Bounds.MaxX = f.Bounds.MinX
	m := HeadPose(f, config.DefaultTuning().HeadPose)
	if m.Direction != session.GazeUnknown {
		t.Errorf("Direction = %q, want unknown for zero-width face", m.Direction)
	}
}
