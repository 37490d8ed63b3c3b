package session

import (
	"errors"
	"math"
	"testing"

	"interview-backend/internal/shared/config"
)

func frame(n int, elapsed float64) FrameMetrics {
	return FrameMetrics{
		FrameNumber:    n,
		ElapsedSeconds: elapsed,
		FaceDetected:   true,
		Expression:     ExpressionMetrics{Label: ExpressionCalm, Stress: StressLow},
		HeadPose:       HeadPoseMetrics{Direction: GazeCenter, IsLookingAtCamera: true},
		Posture:        PostureMetrics{Status: PostureUpright},
		Attention:      AttentionMetrics{Score: 0.9, State: EngagementEngaged},
	}
}

func newTestRecorder() *Recorder {
	return NewRecorder("s1", 5, config.DefaultTuning().Scoring)
}

func TestRecorderRejectsStaleFrameNumbers(t *testing.T) {
	r := newTestRecorder()

	if err := r.Append(frame(0, 0)); err != nil {
		t.Fatalf("Append(0): %v", err)
	}
	if err := r.Append(frame(3, 0.6)); err != nil {
		t.Fatalf("Append(3): %v", err)
	}
	if err := r.Append(frame(3, 0.6)); !errors.Is(err, ErrFrameOrder) {
		t.Errorf("duplicate frame: err = %v, want ErrFrameOrder", err)
	}
	if err := r.Append(frame(1, 0.2)); !errors.Is(err, ErrFrameOrder) {
		t.Errorf("stale frame: err = %v, want ErrFrameOrder", err)
	}
	if r.FrameCount() != 2 {
		t.Errorf("FrameCount = %d, want 2", r.FrameCount())
	}
}

func TestRecorderEmptyAggregate(t *testing.T) {
	agg := newTestRecorder().Aggregate()

	if agg.FrameCount != 0 || agg.DurationSeconds != 0 {
		t.Errorf("aggregate = %+v, want zeroed counters", agg)
	}
	if agg.CVScore != 0 || agg.AvgAttention != 0 {
		t.Errorf("scores = %v/%v, want 0", agg.CVScore, agg.AvgAttention)
	}
	if agg.ExpressionPct == nil || agg.PosturePct == nil || agg.GesturePct == nil {
		t.Error("distribution maps are nil, want empty maps")
	}
	if agg.SamplingRate != 5 {
		t.Errorf("SamplingRate = %v, want 5", agg.SamplingRate)
	}
}

func TestRecorderAggregateDistributions(t *testing.T) {
	r := newTestRecorder()

	// Six face frames, four without a face. One slouching frame among the
	// face frames, one face touch.
	for i := 0; i < 10; i++ {
		fm := frame(i, float64(i)*0.2)
		if i >= 6 {
			fm.FaceDetected = false
			fm.Expression = NeutralExpression(0)
			fm.HeadPose = NeutralHeadPose()
			fm.Attention.Score = 0.3
		}
		if i == 2 {
			fm.Posture.Status = PostureSlouching
		}
		if i == 4 {
			fm.Gesture.FaceTouching = true
			fm.Gesture.FaceTouchCount = 1
		}
		if err := r.Append(fm); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	agg := r.Aggregate()
	if agg.FrameCount != 10 {
		t.Fatalf("FrameCount = %d, want 10", agg.FrameCount)
	}
	if math.Abs(agg.FaceDetectionRate-60) > 1e-9 {
		t.Errorf("FaceDetectionRate = %v, want 60", agg.FaceDetectionRate)
	}
	if math.Abs(agg.ExpressionPct[ExpressionCalm]-100) > 1e-9 {
		t.Errorf("calm share = %v, want 100 over face frames", agg.ExpressionPct[ExpressionCalm])
	}
	if math.Abs(agg.PosturePct[PostureSlouching]-10) > 1e-9 {
		t.Errorf("slouching share = %v, want 10", agg.PosturePct[PostureSlouching])
	}
	if math.Abs(agg.GesturePct["faceTouching"]-10) > 1e-9 {
		t.Errorf("faceTouching share = %v, want 10", agg.GesturePct["faceTouching"])
	}
	if math.Abs(agg.EyeContactRate-100) > 1e-9 {
		t.Errorf("EyeContactRate = %v, want 100 over face frames", agg.EyeContactRate)
	}
	if agg.CVScore <= 0 || agg.CVScore > 100 {
		t.Errorf("CVScore = %v, want in (0,100]", agg.CVScore)
	}
	if agg.DurationSeconds != 1.8 {
		t.Errorf("DurationSeconds = %v, want 1.8", agg.DurationSeconds)
	}
}

func TestRecorderStabilityOverConsecutivePairs(t *testing.T) {
	r := newTestRecorder()

	// Gaze flips once across five face frames: 3 of 4 pairs hold.
	dirs := []string{GazeCenter, GazeCenter, GazeCenter, GazeLeft, GazeLeft}
	for i, d := range dirs {
		fm := frame(i, float64(i)*0.2)
		fm.HeadPose.Direction = d
		fm.HeadPose.IsLookingAtCamera = d == GazeCenter
		if err := r.Append(fm); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	agg := r.Aggregate()
	if math.Abs(agg.GazeStability-75) > 1e-9 {
		t.Errorf("GazeStability = %v, want 75", agg.GazeStability)
	}
	if math.Abs(agg.PostureStability-100) > 1e-9 {
		t.Errorf("PostureStability = %v, want 100", agg.PostureStability)
	}
}

func TestRecorderCumulativeTotalsFromLastFrame(t *testing.T) {
	r := newTestRecorder()

	for i := 0; i < 3; i++ {
		fm := frame(i, float64(i)*0.2)
		fm.Expression.BlinkCount = i + 1
		fm.Gesture.FaceTouchCount = i
		fm.Attention.AlertCount = 1
		if err := r.Append(fm); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	agg := r.Aggregate()
	if agg.BlinkTotal != 3 {
		t.Errorf("BlinkTotal = %d, want 3", agg.BlinkTotal)
	}
	if agg.FaceTouchTotal != 2 {
		t.Errorf("FaceTouchTotal = %d, want 2", agg.FaceTouchTotal)
	}
	if agg.AlertTotal != 1 {
		t.Errorf("AlertTotal = %d, want 1", agg.AlertTotal)
	}
}
