// Package frames runs the per-frame behavioral pipeline: extraction,
// detection, fusion and recording. It owns the per-session state for live
// sessions and the batch pass used by the analysis orchestrator.
package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"interview-backend/internal/detect"
	"interview-backend/internal/fusion"
	"interview-backend/internal/logger"
	"interview-backend/internal/session"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/vision"
)

var (
	// ErrMalformedInput marks frame bytes that are not a decodable image.
	// The frame is skipped; the session is untouched.
	ErrMalformedInput = errors.New("malformed frame image")

	// ErrSessionNotFound is returned when no live session state exists.
	ErrSessionNotFound = errors.New("session not found")
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
)

// state is the mutable pipeline state of one session. The mutex serializes
// frame processing per session; separate sessions proceed independently.
type state struct {
	mu        sync.Mutex
	startedAt time.Time
	frameNo   int
	expr      detect.ExpressionState
	gest      detect.GestureState
	engine    *fusion.Engine
	recorder  *session.Recorder
}

// Service runs the frame pipeline. One instance serves all sessions.
type Service struct {
	extractor vision.Extractor
	tuning    config.Tuning
	log       *logrus.Entry
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*state
}

// NewService constructs the frame pipeline service.
func NewService(extractor vision.Extractor, tuning config.Tuning, log *logger.Logger) *Service {
	return &Service{
		extractor: extractor,
		tuning:    tuning,
		log:       log.Component("frames"),
		now:       time.Now,
		sessions:  make(map[string]*state),
	}
}

// newState builds fresh pipeline state. Live sessions report the tuned
// target rate as their sampling rate; clients are expected to send at it.
func (s *Service) newState(sessionID string) *state {
	return &state{
		startedAt: s.now(),
		engine:    fusion.NewEngine(s.tuning.Fusion),
		recorder:  session.NewRecorder(sessionID, s.tuning.Batch.TargetFPS, s.tuning.Scoring),
	}
}

func (s *Service) liveState(sessionID string) *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = s.newState(sessionID)
		s.sessions[sessionID] = st
	}
	return st
}

// ProcessFrame runs one live frame through the pipeline and returns its
// metrics. Malformed bytes return ErrMalformedInput without advancing the
// session. A frame with no detectable subject is a valid neutral frame.
func (s *Service) ProcessFrame(ctx context.Context, sessionID string, image []byte) (session.FrameMetrics, error) {
	started := s.now()

	if err := validateImage(image); err != nil {
		metrics.IncFrameRejected()
		return session.FrameMetrics{}, err
	}

	st := s.liveState(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	snap, err := s.detect(ctx, image)
	if err != nil {
		return session.FrameMetrics{}, fmt.Errorf("session %s frame %d: %w", sessionID, st.frameNo, err)
	}

	fm := st.analyze(snap, s.tuning)
	fm.ElapsedSeconds = s.now().Sub(st.startedAt).Seconds()
	if err := st.recorder.Append(fm); err != nil {
		return session.FrameMetrics{}, err
	}

	metrics.IncFrameProcessed()
	metrics.ObserveFrameLatencyMs(float64(s.now().Sub(started)) / float64(time.Millisecond))
	return fm, nil
}

// detect calls the extractor. A no-subject answer or an empty snapshot is
// normalized to nil so the detectors emit their neutral defaults.
func (s *Service) detect(ctx context.Context, image []byte) (*vision.Snapshot, error) {
	snap, err := s.extractor.Detect(ctx, image)
	if err != nil {
		if errors.Is(err, vision.ErrNoSubject) {
			return nil, nil
		}
		return nil, fmt.Errorf("extractor: %w", err)
	}
	if snap.Empty() {
		return nil, nil
	}
	return snap, nil
}

// analyze runs the detectors and fusion for one snapshot and advances the
// per-session state. Caller holds st.mu. ElapsedSeconds is left for the
// caller since live and batch measure time differently.
func (st *state) analyze(snap *vision.Snapshot, tuning config.Tuning) session.FrameMetrics {
	var face *vision.FaceLandmarks
	var pose *vision.PoseLandmarks
	var hands []vision.HandLandmarks
	if snap != nil {
		face = snap.Face
		pose = snap.Pose
		hands = snap.Hands
	}

	fm := session.FrameMetrics{
		FrameNumber:  st.frameNo,
		FaceDetected: face != nil,
	}
	st.frameNo++

	fm.Expression, st.expr = detect.Expression(face, st.expr, tuning.Expression)
	fm.HeadPose = detect.HeadPose(face, tuning.HeadPose)
	fm.Posture = detect.Posture(pose, tuning.Posture)

	var faceBounds *vision.Rect
	if face != nil {
		b := face.Bounds
		faceBounds = &b
	}
	fm.Gesture, st.gest = detect.Gesture(hands, faceBounds, st.gest, tuning.Gesture)

	fm.Attention = st.engine.Fuse(fm.FaceDetected, fm.Expression, fm.HeadPose, fm.Posture, fm.Gesture)
	return fm
}

// Aggregate summarizes a live session without ending it.
func (s *Service) Aggregate(sessionID string) (session.Aggregate, error) {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return session.Aggregate{}, ErrSessionNotFound
	}
	return st.recorder.Aggregate(), nil
}

// Clear drops all state for a session. Clearing an unknown session is a
// no-op.
func (s *Service) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// FrameCount returns the number of recorded frames for a live session.
func (s *Service) FrameCount(sessionID string) int {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return st.recorder.FrameCount()
}

// validateImage cheaply rejects bytes that cannot be a supported image.
// Full decoding is the extractor's job.
func validateImage(image []byte) error {
	if len(image) < 8 {
		return fmt.Errorf("%w: too short", ErrMalformedInput)
	}
	if bytes.HasPrefix(image, jpegMagic) || bytes.HasPrefix(image, pngMagic) {
		return nil
	}
	return fmt.Errorf("%w: unsupported format", ErrMalformedInput)
}
