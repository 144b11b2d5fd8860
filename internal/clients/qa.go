package clients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/models"
)

var (
	ErrMissingRole        = errors.New("job role is required")
	ErrMissingDescription = errors.New("job description is required")
	ErrEmptyAnswer        = errors.New("answer is empty")
)

// QAClient talks to the question/answer service: prompt generation for
// a target role and per-answer scoring.
type QAClient struct {
	httpClient
}

// NewQAClient creates a QA service client.
func NewQAClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *QAClient {
	return &QAClient{newHTTPClient(baseURL, apiKey, timeout, log.With().Str("client", "qa").Logger())}
}

// GenerateQuestions asks for interview questions tailored to a role
// and description. Both fields are required; the backend rejects empty
// ones anyway, so fail fast without a network call.
func (c *QAClient) GenerateQuestions(ctx context.Context, role, description string) ([]string, error) {
	if strings.TrimSpace(role) == "" {
		return nil, ErrMissingRole
	}
	if strings.TrimSpace(description) == "" {
		return nil, ErrMissingDescription
	}

	payload := map[string]string{
		"job_role":        role,
		"job_description": description,
	}
	var out struct {
		Questions []string `json:"questions"`
	}
	if err := c.postJSON(ctx, "/generate", payload, &out); err != nil {
		return nil, err
	}
	c.log.Debug().Int("count", len(out.Questions)).Msg("Questions generated")
	return out.Questions, nil
}

// ScoreAnswer scores one answer against its question.
func (c *QAClient) ScoreAnswer(ctx context.Context, question, answer string) (*models.AnswerScore, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}

	payload := map[string]string{
		"question": question,
		"answer":   answer,
	}
	var out models.AnswerScore
	if err := c.postJSON(ctx, "/score", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
