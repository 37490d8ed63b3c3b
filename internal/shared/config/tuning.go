package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning collects the heuristic constants of the behavioral pipeline. All of
// them ship with defaults and can be overridden from a YAML file so weights
// and thresholds can be tuned without redeploying logic.
type Tuning struct {
	Expression ExpressionTuning `yaml:"expression"`
	HeadPose   HeadPoseTuning   `yaml:"head_pose"`
	Posture    PostureTuning    `yaml:"posture"`
	Gesture    GestureTuning    `yaml:"gesture"`
	Fusion     FusionTuning     `yaml:"fusion"`
	Transcript TranscriptTuning `yaml:"transcript"`
	Batch      BatchTuning      `yaml:"batch"`
	Scoring    ScoringTuning    `yaml:"scoring"`
}

// ExpressionTuning controls EAR/MAR classification.
type ExpressionTuning struct {
	BlinkEARThreshold    float64 `yaml:"blink_ear_threshold"`
	DrowsyEARThreshold   float64 `yaml:"drowsy_ear_threshold"`
	DrowsyFrames         int     `yaml:"drowsy_frames"`
	SurprisedEARThreshold float64 `yaml:"surprised_ear_threshold"`
	SmileMARThreshold    float64 `yaml:"smile_mar_threshold"`
	WideMARThreshold     float64 `yaml:"wide_mar_threshold"`
}

// HeadPoseTuning controls gaze direction classification in degrees.
type HeadPoseTuning struct {
	YawCenterDeg   float64 `yaml:"yaw_center_deg"`
	PitchCenterDeg float64 `yaml:"pitch_center_deg"`
	CameraYawDeg   float64 `yaml:"camera_yaw_deg"`
	CameraPitchDeg float64 `yaml:"camera_pitch_deg"`
}

// PostureTuning controls slouch/lean classification in degrees.
type PostureTuning struct {
	NeckLeanDeg    float64 `yaml:"neck_lean_deg"`
	NeckSlouchDeg  float64 `yaml:"neck_slouch_deg"`
	TorsoLeanDeg   float64 `yaml:"torso_lean_deg"`
	TorsoSlouchDeg float64 `yaml:"torso_slouch_deg"`
}

// GestureTuning controls hand-signal detection.
type GestureTuning struct {
	FaceTouchMargin    float64 `yaml:"face_touch_margin"`
	FidgetWindow       int     `yaml:"fidget_window"`
	FidgetVariance     float64 `yaml:"fidget_variance"`
	ExcessiveVariance  float64 `yaml:"excessive_variance"`
}

// FusionTuning holds the attention fusion weights and hysteresis thresholds.
type FusionTuning struct {
	ExpressionWeight    float64 `yaml:"expression_weight"`
	PostureWeight       float64 `yaml:"posture_weight"`
	GazeWeight          float64 `yaml:"gaze_weight"`
	GestureWeight       float64 `yaml:"gesture_weight"`
	EngagedThreshold    float64 `yaml:"engaged_threshold"`
	DistractedThreshold float64 `yaml:"distracted_threshold"`
	SustainFrames       int     `yaml:"sustain_frames"`
}

// TranscriptTuning holds communication-score bands and deduction caps.
type TranscriptTuning struct {
	FillerBenchmarkPct  float64 `yaml:"filler_benchmark_pct"`
	FillerDeductionCap  float64 `yaml:"filler_deduction_cap"`
	PaceDeductionCap    float64 `yaml:"pace_deduction_cap"`
	DiversityGoodRatio  float64 `yaml:"diversity_good_ratio"`
	DiversityDeductionCap float64 `yaml:"diversity_deduction_cap"`
}

// BatchTuning controls offline video analysis.
type BatchTuning struct {
	TargetFPS       float64 `yaml:"target_fps"`
	MaxStageRetries int     `yaml:"max_stage_retries"`
}

// ScoringTuning controls how subscores combine into the CV score and how
// the two channel scores combine into the overall score.
type ScoringTuning struct {
	CVWeight            float64 `yaml:"cv_weight"`
	CommunicationWeight float64 `yaml:"communication_weight"`

	AttentionSubWeight  float64 `yaml:"attention_sub_weight"`
	PostureSubWeight    float64 `yaml:"posture_sub_weight"`
	ExpressionSubWeight float64 `yaml:"expression_sub_weight"`
	GestureSubWeight    float64 `yaml:"gesture_sub_weight"`
}

// DefaultTuning returns the compiled-in heuristics.
func DefaultTuning() Tuning {
	return Tuning{
		Expression: ExpressionTuning{
			BlinkEARThreshold:     0.21,
			DrowsyEARThreshold:    0.24,
			DrowsyFrames:          8,
			SurprisedEARThreshold: 0.36,
			SmileMARThreshold:     0.45,
			WideMARThreshold:      0.75,
		},
		HeadPose: HeadPoseTuning{
			YawCenterDeg:   15,
			PitchCenterDeg: 12,
			CameraYawDeg:   10,
			CameraPitchDeg: 8,
		},
		Posture: PostureTuning{
			NeckLeanDeg:    20,
			NeckSlouchDeg:  32,
			TorsoLeanDeg:   12,
			TorsoSlouchDeg: 22,
		},
		Gesture: GestureTuning{
			FaceTouchMargin:   0.05,
			FidgetWindow:      15,
			FidgetVariance:    0.0025,
			ExcessiveVariance: 0.0100,
		},
		Fusion: FusionTuning{
			ExpressionWeight:    0.25,
			PostureWeight:       0.25,
			GazeWeight:          0.30,
			GestureWeight:       0.20,
			EngagedThreshold:    0.7,
			DistractedThreshold: 0.4,
			SustainFrames:       5,
		},
		Transcript: TranscriptTuning{
			FillerBenchmarkPct:    3.0,
			FillerDeductionCap:    25,
			PaceDeductionCap:      20,
			DiversityGoodRatio:    0.5,
			DiversityDeductionCap: 15,
		},
		Batch: BatchTuning{
			TargetFPS:       5,
			MaxStageRetries: 3,
		},
		Scoring: ScoringTuning{
			CVWeight:            0.5,
			CommunicationWeight: 0.5,
			AttentionSubWeight:  0.30,
			PostureSubWeight:    0.25,
			ExpressionSubWeight: 0.25,
			GestureSubWeight:    0.20,
		},
	}
}

// LoadTuning reads tuning overrides from a YAML file. An empty path returns
// the defaults; a missing or malformed file is an error so a bad deploy does
// not silently fall back to compiled constants.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return t, fmt.Errorf("open tuning file: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&t); err != nil {
		return t, fmt.Errorf("decode tuning file: %w", err)
	}
	return t, nil
}
