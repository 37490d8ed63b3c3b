package detect

import (
	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/vision"
)

// Posture computes neck and torso lean from ear/shoulder/hip landmarks and
// classifies the sitting posture. It is stateless and works without a face,
// so a subject looking away keeps producing posture metrics.
func Posture(pose *vision.PoseLandmarks, cfg config.PostureTuning) session.PostureMetrics {
	if pose == nil {
		return session.PostureMetrics{Status: session.PostureUnknown}
	}

	earMid := midpoint(pose.LeftEar, pose.RightEar)
	shoulderMid := midpoint(pose.LeftShoulder, pose.RightShoulder)
	hipMid := midpoint(pose.LeftHip, pose.RightHip)

	neck := verticalAngle(shoulderMid, earMid)
	torso := verticalAngle(hipMid, shoulderMid)

	m := session.PostureMetrics{NeckAngle: neck, TorsoAngle: torso}
	switch {
	case neck >= cfg.NeckSlouchDeg || torso >= cfg.TorsoSlouchDeg:
		m.Status = session.PostureSlouching
	case neck >= cfg.NeckLeanDeg || torso >= cfg.TorsoLeanDeg:
		m.Status = session.PostureLeaning
	default:
		m.Status = session.PostureUpright
	}
	m.IsSlouching = m.Status == session.PostureSlouching
	return m
}
