package session

import (
	"errors"
	"sync"

	"interview-backend/internal/shared/config"
)

// ErrFrameOrder is returned when a frame arrives with a number that does not
// advance the session.
var ErrFrameOrder = errors.New("frame number must be strictly increasing")

// Recorder buffers FrameMetrics for one session and computes the aggregate
// summary on demand. Appends are serialized; the recorder is the single
// point where concurrent batch workers converge.
type Recorder struct {
	mu        sync.Mutex
	sessionID string
	sampling  float64
	scoring   config.ScoringTuning
	frames    []FrameMetrics
	lastFrame int
}

// NewRecorder builds a recorder for sessionID. samplingRate is the analyzed
// frames per second and is reported back in the aggregate.
func NewRecorder(sessionID string, samplingRate float64, scoring config.ScoringTuning) *Recorder {
	return &Recorder{
		sessionID: sessionID,
		sampling:  samplingRate,
		scoring:   scoring,
		lastFrame: -1,
	}
}

// Append buffers one frame record. Frame numbers must advance.
func (r *Recorder) Append(fm FrameMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fm.FrameNumber <= r.lastFrame {
		return ErrFrameOrder
	}
	r.lastFrame = fm.FrameNumber
	r.frames = append(r.frames, fm)
	return nil
}

// FrameCount returns the number of buffered frames.
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Aggregate computes the session summary. A session with zero usable frames
// yields a well-formed all-zero aggregate; distributions are computed over
// frames where the relevant signal was valid, never dividing by zero.
func (r *Recorder) Aggregate() Aggregate {
	r.mu.Lock()
	frames := make([]FrameMetrics, len(r.frames))
	copy(frames, r.frames)
	r.mu.Unlock()

	agg := Aggregate{
		SamplingRate:  r.sampling,
		FrameCount:    len(frames),
		ExpressionPct: map[string]float64{},
		PosturePct:    map[string]float64{},
		GesturePct:    map[string]float64{},
	}
	if len(frames) == 0 {
		return agg
	}

	last := frames[len(frames)-1]
	agg.DurationSeconds = last.ElapsedSeconds
	agg.BlinkTotal = last.Expression.BlinkCount
	agg.FaceTouchTotal = last.Gesture.FaceTouchCount
	agg.AlertTotal = last.Attention.AlertCount

	var (
		faceFrames    int
		postureFrames int
		eyeContact    int
		gazeHolds     int
		gazePairs     int
		postureHolds  int
		posturePairs  int
		attentionSum  float64
		touching      int
		fidgeting     int
		excessive     int
		prevGaze      string
		prevPosture   string
	)

	exprCounts := map[string]int{}
	postureCounts := map[string]int{}

	for _, fm := range frames {
		attentionSum += fm.Attention.Score

		if fm.FaceDetected {
			faceFrames++
			exprCounts[fm.Expression.Label]++
			if fm.HeadPose.IsLookingAtCamera {
				eyeContact++
			}
			if prevGaze != "" {
				gazePairs++
				if fm.HeadPose.Direction == prevGaze {
					gazeHolds++
				}
			}
			prevGaze = fm.HeadPose.Direction
		}

		if fm.Posture.Status != PostureUnknown && fm.Posture.Status != "" {
			postureFrames++
			postureCounts[fm.Posture.Status]++
			if prevPosture != "" {
				posturePairs++
				if fm.Posture.Status == prevPosture {
					postureHolds++
				}
			}
			prevPosture = fm.Posture.Status
		}

		if fm.Gesture.FaceTouching {
			touching++
		}
		if fm.Gesture.HandFidgeting {
			fidgeting++
		}
		if fm.Gesture.ExcessiveGesturing {
			excessive++
		}
	}

	total := float64(len(frames))
	agg.FaceDetectionRate = pct(faceFrames, len(frames))
	agg.AvgAttention = attentionSum / total

	for label, n := range exprCounts {
		agg.ExpressionPct[label] = pct(n, faceFrames)
	}
	for status, n := range postureCounts {
		agg.PosturePct[status] = pct(n, postureFrames)
	}
	agg.GesturePct["faceTouching"] = pct(touching, len(frames))
	agg.GesturePct["handFidgeting"] = pct(fidgeting, len(frames))
	agg.GesturePct["excessiveGesturing"] = pct(excessive, len(frames))

	if faceFrames > 0 {
		agg.EyeContactRate = pct(eyeContact, faceFrames)
	}
	if gazePairs > 0 {
		agg.GazeStability = pct(gazeHolds, gazePairs)
	}
	if posturePairs > 0 {
		agg.PostureStability = pct(postureHolds, posturePairs)
	}

	agg.AttentionScore = clampScore(agg.AvgAttention * 100)
	agg.PostureScore = postureScore(agg.PosturePct, postureFrames)
	agg.ExpressionScore = expressionScore(agg.ExpressionPct, faceFrames)
	agg.GestureScore = gestureScore(agg.GesturePct)

	w := r.scoring
	weightSum := w.AttentionSubWeight + w.PostureSubWeight + w.ExpressionSubWeight + w.GestureSubWeight
	if weightSum <= 0 {
		weightSum = 1
	}
	agg.CVScore = clampScore((agg.AttentionScore*w.AttentionSubWeight +
		agg.PostureScore*w.PostureSubWeight +
		agg.ExpressionScore*w.ExpressionSubWeight +
		agg.GestureScore*w.GestureSubWeight) / weightSum)

	return agg
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// postureScore rewards time spent upright over leaning or slouching.
func postureScore(dist map[string]float64, validFrames int) float64 {
	if validFrames == 0 {
		return 0
	}
	score := dist[PostureUpright]*1.0 + dist[PostureLeaning]*0.6 + dist[PostureSlouching]*0.25
	return clampScore(score)
}

// expressionScore rewards engaged expressions and penalizes drowsy/sad time.
func expressionScore(dist map[string]float64, faceFrames int) float64 {
	if faceFrames == 0 {
		return 0
	}
	score := dist[ExpressionSmiling]*1.0 +
		dist[ExpressionCalm]*0.9 +
		dist[ExpressionNeutral]*0.75 +
		dist[ExpressionSurprised]*0.65 +
		dist[ExpressionSad]*0.4 +
		dist[ExpressionDrowsy]*0.3
	return clampScore(score)
}

// gestureScore starts from 100 and deducts for nervous-hand time.
func gestureScore(dist map[string]float64) float64 {
	score := 100.0
	score -= dist["faceTouching"] * 0.40
	score -= dist["handFidgeting"] * 0.30
	score -= dist["excessiveGesturing"] * 0.20
	return clampScore(score)
}
