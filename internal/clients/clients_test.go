package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestQAClient_GenerateQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("expected path /generate, got %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["job_role"] != "Backend Engineer" {
			t.Errorf("expected job_role 'Backend Engineer', got %q", body["job_role"])
		}
		if body["job_description"] != "Builds APIs" {
			t.Errorf("expected job_description 'Builds APIs', got %q", body["job_description"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"questions": []string{"1. Tell me about yourself", "2. Why this role?"},
		})
	}))
	defer srv.Close()

	c := NewQAClient(srv.URL, "", 5*time.Second, zerolog.Nop())
	questions, err := c.GenerateQuestions(context.Background(), "Backend Engineer", "Builds APIs")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0] != "1. Tell me about yourself" {
		t.Errorf("unexpected first question: %q", questions[0])
	}
}

func TestQAClient_GenerateQuestions_RequiresRoleAndDescription(t *testing.T) {
	c := NewQAClient("http://unused", "", time.Second, zerolog.Nop())

	if _, err := c.GenerateQuestions(context.Background(), "", "desc"); err != ErrMissingRole {
		t.Errorf("expected ErrMissingRole, got %v", err)
	}
	if _, err := c.GenerateQuestions(context.Background(), "role", "  "); err != ErrMissingDescription {
		t.Errorf("expected ErrMissingDescription, got %v", err)
	}
}

func TestQAClient_ErrorMessageSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "model provider rejected the request"})
	}))
	defer srv.Close()

	c := NewQAClient(srv.URL, "", 5*time.Second, zerolog.Nop())
	_, err := c.GenerateQuestions(context.Background(), "role", "desc")

	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "model provider rejected the request" {
		t.Errorf("expected verbatim service message, got %q", err.Error())
	}
}

func TestQAClient_ScoreAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/score" {
			t.Errorf("expected path /score, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"score":        8,
			"feedback":     []string{"clear structure"},
			"improvements": []string{"quantify impact"},
		})
	}))
	defer srv.Close()

	c := NewQAClient(srv.URL, "", 5*time.Second, zerolog.Nop())
	score, err := c.ScoreAnswer(context.Background(), "Tell me about yourself", "I led a team")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Score != 8 {
		t.Errorf("expected score 8, got %d", score.Score)
	}
	if len(score.Feedback) != 1 || score.Feedback[0] != "clear structure" {
		t.Errorf("unexpected feedback: %v", score.Feedback)
	}
}

func TestQAClient_ScoreAnswer_EmptyAnswer(t *testing.T) {
	c := NewQAClient("http://unused", "", time.Second, zerolog.Nop())

	if _, err := c.ScoreAnswer(context.Background(), "q", "  "); err != ErrEmptyAnswer {
		t.Errorf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestTranscriptionClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe-audio" {
			t.Errorf("expected path /transcribe-audio, got %s", r.URL.Path)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("expected multipart field 'audio': %v", err)
		}
		defer file.Close()
		if header.Filename != "speech-segment.webm" {
			t.Errorf("expected filename 'speech-segment.webm', got %q", header.Filename)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "hello there"})
	}))
	defer srv.Close()

	c := NewTranscriptionClient(srv.URL, "", 5*time.Second, zerolog.Nop())
	result, err := c.Transcribe(context.Background(), []byte("fake-audio"), "audio/webm")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "hello there" {
		t.Errorf("expected text 'hello there', got %q", result.Text)
	}
	if result.Warning != "" {
		t.Errorf("expected no warning, got %q", result.Warning)
	}
}

func TestTranscriptionClient_WarningPassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "", "warning": "low confidence"})
	}))
	defer srv.Close()

	c := NewTranscriptionClient(srv.URL, "", 5*time.Second, zerolog.Nop())
	result, err := c.Transcribe(context.Background(), []byte("fake-audio"), "audio/webm")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "" {
		t.Errorf("expected empty text, got %q", result.Text)
	}
	if result.Warning != "low confidence" {
		t.Errorf("expected warning 'low confidence', got %q", result.Warning)
	}
}

func TestTranscriptionClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		json.NewEncoder(w).Encode(map[string]string{"error": "unsupported audio format"})
	}))
	defer srv.Close()

	c := NewTranscriptionClient(srv.URL, "", 5*time.Second, zerolog.Nop())
	_, err := c.Transcribe(context.Background(), []byte("bad"), "audio/webm")

	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "unsupported audio format" {
		t.Errorf("expected verbatim service message, got %q", err.Error())
	}
}

func TestSegmentExtension(t *testing.T) {
	tests := []struct {
		mime     string
		expected string
	}{
		{"audio/webm", "webm"},
		{"audio/webm;codecs=opus", "webm"},
		{"audio/mp4", "m4a"},
		{"", "webm"},
	}
	for _, tt := range tests {
		if got := segmentExtension(tt.mime); got != tt.expected {
			t.Errorf("segmentExtension(%q) = %q, want %q", tt.mime, got, tt.expected)
		}
	}
}

func TestEvaluationClient_Evaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realtime-score" {
			t.Errorf("expected path /realtime-score, got %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["role"] != "Candidate" {
			t.Errorf("expected role 'Candidate', got %v", body["role"])
		}
		if body["filler_words"] != float64(3) {
			t.Errorf("expected filler_words 3, got %v", body["filler_words"])
		}
		if body["face_detected"] != true {
			t.Errorf("expected face_detected true, got %v", body["face_detected"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"overall_score":    7,
			"tone_score":       6,
			"posture_score":    8,
			"outfit_score":     7,
			"confidence_score": 6,
			"summary":          "Good pacing",
			"feedback":         []string{"steady voice"},
			"improvements":     []string{"reduce filler words"},
		})
	}))
	defer srv.Close()

	c := NewEvaluationClient(srv.URL, "", 5*time.Second, zerolog.Nop())
	report, err := c.Evaluate(context.Background(), EvaluationRequest{
		Role:         "Candidate",
		Transcript:   "um I think so",
		FillerWords:  3,
		FaceDetected: true,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OverallScore != 7 {
		t.Errorf("expected overall score 7, got %d", report.OverallScore)
	}
	if report.Summary != "Good pacing" {
		t.Errorf("expected summary 'Good pacing', got %q", report.Summary)
	}
}

func TestEvaluationClient_ErrorLeavesNoReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "evaluation backend overloaded"})
	}))
	defer srv.Close()

	c := NewEvaluationClient(srv.URL, "", 5*time.Second, zerolog.Nop())
	report, err := c.Evaluate(context.Background(), EvaluationRequest{})

	if err == nil {
		t.Fatal("expected error")
	}
	if report != nil {
		t.Errorf("expected nil report on error, got %+v", report)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("expected service message, got %q", err.Error())
	}
}
