package detect

import (
	"math"

	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/vision"
)

// HeadPose estimates yaw/pitch/roll from facial landmark geometry and
// classifies the gaze direction. It is stateless.
func HeadPose(face *vision.FaceLandmarks, cfg config.HeadPoseTuning) session.HeadPoseMetrics {
	if face == nil {
		return session.NeutralHeadPose()
	}

	leftEye := eyeCenter(face.LeftEye)
	rightEye := eyeCenter(face.RightEye)
	eyeMid := midpoint(leftEye, rightEye)

	faceWidth := face.Bounds.MaxX - face.Bounds.MinX
	eyeToChin := face.Chin.Y - eyeMid.Y
	if faceWidth <= 0 || eyeToChin <= 0 {
		return session.NeutralHeadPose()
	}

	// Yaw from the nose tip's horizontal offset against the eye midline,
	// normalized by half the face width. Positive is the subject's right.
	yaw := (face.NoseTip.X - eyeMid.X) / (faceWidth / 2) * 45

	// Pitch from where the nose tip sits between the eye line and the chin.
	// A level head puts it near the middle; positive is upward.
	noseRatio := (face.NoseTip.Y - eyeMid.Y) / eyeToChin
	pitch := (0.5 - noseRatio) * 90

	// Roll from the eye-line slope.
	roll := degrees(math.Atan2(rightEye.Y-leftEye.Y, rightEye.X-leftEye.X))

	m := session.HeadPoseMetrics{Yaw: yaw, Pitch: pitch, Roll: roll}
	m.IsLookingAtCamera = math.Abs(yaw) <= cfg.CameraYawDeg && math.Abs(pitch) <= cfg.CameraPitchDeg

	switch {
	case math.Abs(yaw) <= cfg.YawCenterDeg && math.Abs(pitch) <= cfg.PitchCenterDeg:
		m.Direction = session.GazeCenter
	case math.Abs(yaw) >= math.Abs(pitch) && yaw > 0:
		m.Direction = session.GazeRight
	case math.Abs(yaw) >= math.Abs(pitch):
		m.Direction = session.GazeLeft
	case pitch > 0:
		m.Direction = session.GazeUp
	default:
		m.Direction = session.GazeDown
	}
	return m
}

func eyeCenter(eye [6]vision.Point) vision.Point {
	var c vision.Point
	for _, p := range eye {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(eye))
	c.Y /= float64(len(eye))
	return c
}
