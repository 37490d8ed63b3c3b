// Package session holds the per-frame record model and the recorder that
// turns a buffered session into an aggregate summary.
package session

// Expression labels produced by the expression detector.
const (
	ExpressionNeutral   = "neutral"
	ExpressionCalm      = "calm"
	ExpressionSmiling   = "smiling"
	ExpressionSurprised = "surprised"
	ExpressionDrowsy    = "drowsy"
	ExpressionSad       = "sad"
)

// Stress levels derived from facial signals.
const (
	StressLow      = "low"
	StressModerate = "moderate"
	StressHigh     = "high"
)

// Posture states.
const (
	PostureUpright   = "upright"
	PostureLeaning   = "leaning"
	PostureSlouching = "slouching"
	PostureUnknown   = "unknown"
)

// Gaze directions.
const (
	GazeCenter  = "center"
	GazeLeft    = "left"
	GazeRight   = "right"
	GazeUp      = "up"
	GazeDown    = "down"
	GazeUnknown = "unknown"
)

// Engagement states produced by the fusion engine.
const (
	EngagementEngaged    = "engaged"
	EngagementNeutral    = "neutral"
	EngagementDistracted = "distracted"
)

// EyeAspect is the per-eye and averaged eye aspect ratio.
type EyeAspect struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
	Avg   float64 `json:"avg"`
}

// ExpressionMetrics is the expression detector output for one frame.
type ExpressionMetrics struct {
	Label       string    `json:"label"`
	Confidence  float64   `json:"confidence"`
	EyeAspect   EyeAspect `json:"eyeAspectRatio"`
	MouthAspect float64   `json:"mouthAspectRatio"`
	IsBlinking  bool      `json:"isBlinking"`
	BlinkCount  int       `json:"cumulativeBlinkCount"`
	Stress      string    `json:"stressLevel"`
}

// HeadPoseMetrics is the head-pose estimator output for one frame.
type HeadPoseMetrics struct {
	Yaw               float64 `json:"yaw"`
	Pitch             float64 `json:"pitch"`
	Roll              float64 `json:"roll"`
	Direction         string  `json:"direction"`
	IsLookingAtCamera bool    `json:"isLookingAtCamera"`
}

// PostureMetrics is the posture analyzer output for one frame.
type PostureMetrics struct {
	Status      string  `json:"status"`
	NeckAngle   float64 `json:"neckAngle"`
	TorsoAngle  float64 `json:"torsoAngle"`
	IsSlouching bool    `json:"isSlouching"`
}

// GestureMetrics is the gesture detector output for one frame.
type GestureMetrics struct {
	FaceTouching       bool `json:"faceTouching"`
	HandFidgeting      bool `json:"handFidgeting"`
	ExcessiveGesturing bool `json:"excessiveGesturing"`
	FaceTouchCount     int  `json:"cumulativeFaceTouchCount"`
}

// AttentionMetrics is the fused engagement signal for one frame.
type AttentionMetrics struct {
	Score        float64 `json:"score"`
	State        string  `json:"state"`
	IsEngaged    bool    `json:"isEngaged"`
	IsDistracted bool    `json:"isDistracted"`
	AlertCount   int     `json:"cumulativeAlertCount"`
}

// FrameMetrics is the full behavioral record for one analyzed frame.
type FrameMetrics struct {
	FrameNumber    int               `json:"frameNumber"`
	ElapsedSeconds float64           `json:"elapsedSeconds"`
	FaceDetected   bool              `json:"faceDetected"`
	Expression     ExpressionMetrics `json:"expression"`
	HeadPose       HeadPoseMetrics   `json:"headPose"`
	Posture        PostureMetrics    `json:"posture"`
	Gesture        GestureMetrics    `json:"gesture"`
	Attention      AttentionMetrics  `json:"attention"`
}

// NeutralExpression returns the defaulted facial fields used when no face is
// present in a frame.
func NeutralExpression(blinkCount int) ExpressionMetrics {
	return ExpressionMetrics{
		Label:      ExpressionNeutral,
		Confidence: 0,
		Stress:     StressLow,
		BlinkCount: blinkCount,
	}
}

// NeutralHeadPose returns the defaulted head-pose fields for a face-less frame.
func NeutralHeadPose() HeadPoseMetrics {
	return HeadPoseMetrics{Direction: GazeUnknown}
}

// Aggregate is the session-level summary computed at session end.
type Aggregate struct {
	DurationSeconds float64 `json:"durationSeconds"`
	FrameCount      int     `json:"frameCount"`
	SamplingRate    float64 `json:"samplingRate"`

	FaceDetectionRate float64 `json:"faceDetectionRate"`

	// Distributions are percentages over frames where the relevant signal
	// was valid, so each map sums to ~100 when any such frames exist.
	ExpressionPct map[string]float64 `json:"expressionDistribution"`
	PosturePct    map[string]float64 `json:"postureDistribution"`
	GesturePct    map[string]float64 `json:"gestureDistribution"`

	BlinkTotal     int `json:"blinkTotal"`
	FaceTouchTotal int `json:"faceTouchTotal"`
	AlertTotal     int `json:"alertTotal"`

	EyeContactRate   float64 `json:"eyeContactRate"`
	GazeStability    float64 `json:"gazeStability"`
	PostureStability float64 `json:"postureStability"`
	AvgAttention     float64 `json:"avgAttentionScore"`

	AttentionScore  float64 `json:"attentionScore"`
	PostureScore    float64 `json:"postureScore"`
	ExpressionScore float64 `json:"expressionScore"`
	GestureScore    float64 `json:"gestureScore"`

	CVScore float64 `json:"cvScore"`
}
