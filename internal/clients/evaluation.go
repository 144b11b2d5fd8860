package clients

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/models"
)

// EvaluationRequest is the fused multimodal payload: transcript so
// far, pacing signals, the visual proxy scores, and one JPEG frame.
type EvaluationRequest struct {
	Role             string `json:"role"`
	JobDescription   string `json:"job_description"`
	Transcript       string `json:"transcript"`
	SessionSeconds   int    `json:"session_seconds"`
	FillerWords      int    `json:"filler_words"`
	EyeContact       int    `json:"eye_contact"`
	Posture          int    `json:"posture"`
	Outfit           int    `json:"outfit"`
	ConfidenceSignal int    `json:"confidence_signal"`
	LightingScore    int    `json:"lighting_score"`
	FaceDetected     bool   `json:"face_detected"`
	FrameBase64      string `json:"frame_base64"`
}

// EvaluationClient calls the realtime evaluation service.
type EvaluationClient struct {
	httpClient
}

// NewEvaluationClient creates an evaluation service client.
func NewEvaluationClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *EvaluationClient {
	return &EvaluationClient{newHTTPClient(baseURL, apiKey, timeout, log.With().Str("client", "evaluation").Logger())}
}

// Evaluate sends one fused sample and returns the scored report. On
// error the caller keeps displaying the previous report.
func (c *EvaluationClient) Evaluate(ctx context.Context, req EvaluationRequest) (*models.EvaluationReport, error) {
	var out models.EvaluationReport
	if err := c.postJSON(ctx, "/realtime-score", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
