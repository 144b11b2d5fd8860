// Package models defines the data structures shared across the
// orchestrator: visual metrics, evaluation reports, and the events
// published for downstream consumers.
package models

// LightingLabel is the coarse classification of frame lighting quality.
type LightingLabel string

const (
	LightingPoor     LightingLabel = "Poor"
	LightingModerate LightingLabel = "Moderate"
	LightingGood     LightingLabel = "Good"
)

// VisualMetrics holds the per-frame proxy scores. All numeric scores
// are bounded to [1,10] before a value is ever published.
type VisualMetrics struct {
	EyeContact       int           `json:"eye_contact"`
	Posture          int           `json:"posture"`
	Outfit           int           `json:"outfit"`
	ConfidenceSignal int           `json:"confidence_signal"`
	Lighting         int           `json:"lighting_score"`
	FaceDetected     bool          `json:"face_detected"`
	LightingLabel    LightingLabel `json:"lighting_label"`
}

// NeutralVisualMetrics returns the midpoint metrics used before any
// frame has been analyzed.
func NeutralVisualMetrics() VisualMetrics {
	return VisualMetrics{
		EyeContact:       6,
		Posture:          6,
		Outfit:           6,
		ConfidenceSignal: 6,
		Lighting:         6,
		FaceDetected:     false,
		LightingLabel:    LightingModerate,
	}
}

// AnswerScore is the Question/Answer service's verdict on one answer.
type AnswerScore struct {
	Score        int      `json:"score"`
	Feedback     []string `json:"feedback"`
	Improvements []string `json:"improvements"`
}

// EvaluationReport is the fused result of one realtime evaluation
// tick. AnswerScore is the best-effort per-question sub-result and may
// be nil. Immutable once received.
type EvaluationReport struct {
	OverallScore    int          `json:"overall_score"`
	ToneScore       int          `json:"tone_score"`
	PostureScore    int          `json:"posture_score"`
	OutfitScore     int          `json:"outfit_score"`
	ConfidenceScore int          `json:"confidence_score"`
	Summary         string       `json:"summary"`
	Feedback        []string     `json:"feedback"`
	Improvements    []string     `json:"improvements"`
	AnswerScore     *AnswerScore `json:"answer_score,omitempty"`
}

// TranscriptionResult is what the Transcription service returns for
// one dispatched segment. Warning carries a non-fatal advisory that
// must be surfaced even when Text is usable.
type TranscriptionResult struct {
	Text    string `json:"text"`
	Warning string `json:"warning,omitempty"`
}

// TranscriptSegmentEvent is published when a dispatched segment's text
// is committed to the session transcript.
type TranscriptSegmentEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	SegmentID string `json:"segmentId"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
	Bytes     int    `json:"audioBytes"`
}

// EvaluationReportEvent is published for every completed evaluation
// tick.
type EvaluationReportEvent struct {
	EventType      string           `json:"eventType"`
	SessionID      string           `json:"sessionId"`
	Timestamp      int64            `json:"timestamp"`
	SessionSeconds int              `json:"sessionSeconds"`
	FillerWords    int              `json:"fillerWords"`
	Report         EvaluationReport `json:"report"`
	Visual         VisualMetrics    `json:"visual"`
}

// EngineState identifies which transcription path is active for a
// session. Transitions are one-directional fallbacks: native and
// hybrid may degrade to backend-stt or none, never upgrade
// mid-session.
type EngineState string

const (
	EngineIdle       EngineState = "idle"
	EngineNative     EngineState = "native"
	EngineHybrid     EngineState = "hybrid"
	EngineBackendSTT EngineState = "backend-stt"
	EngineNone       EngineState = "none"
)
