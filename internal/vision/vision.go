// Package vision defines the contract with the landmark-detection service.
// The extractor itself is an external black box; this package only models
// its outputs so detectors can stay pure functions of landmark geometry.
package vision

import (
	"context"
	"errors"
)

// ErrNoSubject is returned by an Extractor when no person is visible in the
// frame. It is not a fault: callers emit a neutral frame and move on.
var ErrNoSubject = errors.New("no subject detected")

// Point is a normalized landmark coordinate. X and Y are in [0,1] relative
// to the frame; Z is depth relative to the subject, smaller is closer.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Rect is a normalized bounding region.
type Rect struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Contains reports whether p falls inside the rect expanded by margin on
// every side.
func (r Rect) Contains(p Point, margin float64) bool {
	return p.X >= r.MinX-margin && p.X <= r.MaxX+margin &&
		p.Y >= r.MinY-margin && p.Y <= r.MaxY+margin
}

// FaceLandmarks carries the facial points the expression and head-pose
// detectors consume. Eye points follow the usual six-point EAR ordering
// (outer corner, two upper, inner corner, two lower); mouth points follow
// the eight-point MAR ordering (left corner, three upper, right corner,
// three lower).
type FaceLandmarks struct {
	LeftEye  [6]Point `json:"leftEye"`
	RightEye [6]Point `json:"rightEye"`
	Mouth    [8]Point `json:"mouth"`
	NoseTip  Point    `json:"noseTip"`
	Chin     Point    `json:"chin"`
	Bounds   Rect     `json:"bounds"`
}

// PoseLandmarks carries the upper-body points the posture analyzer consumes.
type PoseLandmarks struct {
	LeftEar       Point `json:"leftEar"`
	RightEar      Point `json:"rightEar"`
	LeftShoulder  Point `json:"leftShoulder"`
	RightShoulder Point `json:"rightShoulder"`
	LeftHip       Point `json:"leftHip"`
	RightHip      Point `json:"rightHip"`
}

// HandLandmarks carries one detected hand.
type HandLandmarks struct {
	Wrist      Point   `json:"wrist"`
	Fingertips []Point `json:"fingertips"`
}

// Snapshot is the full landmark set for one frame. Any of the channels may
// be absent: a face can leave the frame while the torso stays visible, and
// detectors must keep working off whatever is present.
type Snapshot struct {
	Face  *FaceLandmarks  `json:"face,omitempty"`
	Pose  *PoseLandmarks  `json:"pose,omitempty"`
	Hands []HandLandmarks `json:"hands,omitempty"`
}

// Empty reports whether the snapshot carries no landmarks at all.
func (s *Snapshot) Empty() bool {
	return s == nil || (s.Face == nil && s.Pose == nil && len(s.Hands) == 0)
}

// Extractor turns one image into a landmark snapshot. Implementations are
// swappable; the production one calls out to a model server.
type Extractor interface {
	Detect(ctx context.Context, image []byte) (*Snapshot, error)
}
