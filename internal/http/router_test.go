package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/clients"
	"ai-interview-orchestrator/internal/config"
	"ai-interview-orchestrator/internal/models"
	"ai-interview-orchestrator/internal/service/session"
	"ai-interview-orchestrator/internal/service/stt"
)

type stubQA struct {
	questions   []string
	generateErr error
	scoreErr    error
}

func (q *stubQA) GenerateQuestions(ctx context.Context, role, description string) ([]string, error) {
	if q.generateErr != nil {
		return nil, q.generateErr
	}
	return q.questions, nil
}

func (q *stubQA) ScoreAnswer(ctx context.Context, question, answer string) (*models.AnswerScore, error) {
	if q.scoreErr != nil {
		return nil, q.scoreErr
	}
	return &models.AnswerScore{Score: 7}, nil
}

type evaluatorFunc func() (*models.EvaluationReport, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, req clients.EvaluationRequest) (*models.EvaluationReport, error) {
	return f()
}

func newTestRouter(t *testing.T, qa session.QAService) (http.Handler, *session.Manager) {
	t.Helper()
	cfg := &config.Configuration{
		VAD:        config.DefaultVAD(),
		Visual:     config.DefaultVisual(),
		Evaluation: config.DefaultEvaluation(),
	}
	manager := session.NewManager(session.ManagerDeps{
		Cfg: cfg,
		QA:  qa,
		Evaluator: evaluatorFunc(func() (*models.EvaluationReport, error) {
			return &models.EvaluationReport{OverallScore: 7, Summary: "ok"}, nil
		}),
		EngineFactory: func(ctx context.Context) (stt.Adapter, error) { return nil, nil },
		Logger:        zerolog.Nop(),
	})
	return NewRouter(nil, manager, qa, nil), manager
}

func TestRouter_Liveness(t *testing.T) {
	router, _ := newTestRouter(t, &stubQA{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/liveness", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestRouter_CreateAndFetchSession(t *testing.T) {
	router, manager := newTestRouter(t, &stubQA{questions: []string{"Q1?"}})
	defer manager.Shutdown()

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"role": "Backend Engineer", "job_description": "Builds services"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("expected snapshot payload, got %v", err)
	}
	if snap.ID == "" {
		t.Fatal("expected a session ID in the snapshot")
	}
	if snap.Role != "Backend Engineer" {
		t.Errorf("expected role in snapshot, got %q", snap.Role)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+snap.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 on fetch, got %d", rec.Code)
	}
}

func TestRouter_FetchUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t, &stubQA{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	var envelope map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected error envelope, got %v", err)
	}
	if envelope["error"] == "" {
		t.Error("expected an error message in the envelope")
	}
}

func TestRouter_DeleteSessionIsIdempotent(t *testing.T) {
	router, manager := newTestRouter(t, &stubQA{})
	defer manager.Shutdown()

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"role": "Backend Engineer", "job_description": "Builds services"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", body))
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("expected snapshot payload, got %v", err)
	}

	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+snap.ID, nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("delete %d: expected status 204, got %d", i+1, rec.Code)
		}
	}

	// Unknown IDs delete cleanly too.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/sessions/never-existed", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for unknown session, got %d", rec.Code)
	}
}

func TestRouter_GenerateQuestions(t *testing.T) {
	router, _ := newTestRouter(t, &stubQA{questions: []string{"Q1?", "Q2?"}})

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"job_role": "Backend Engineer", "job_description": "Builds services"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/questions/generate", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp generateQuestionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected questions payload, got %v", err)
	}
	if len(resp.Questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(resp.Questions))
	}
}

func TestRouter_GenerateQuestionsErrorPassesThrough(t *testing.T) {
	router, _ := newTestRouter(t, &stubQA{generateErr: errors.New("QA service is down")})

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"job_role": "x", "job_description": "y"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/questions/generate", body))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	var envelope map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected error envelope, got %v", err)
	}
	if envelope["error"] != "QA service is down" {
		t.Errorf("expected verbatim collaborator message, got %q", envelope["error"])
	}
}

func TestRouter_ScoreAnswer(t *testing.T) {
	router, _ := newTestRouter(t, &stubQA{})

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"question": "Tell me about yourself.", "answer": "I build services."}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/questions/score", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var score models.AnswerScore
	if err := json.Unmarshal(rec.Body.Bytes(), &score); err != nil {
		t.Fatalf("expected score payload, got %v", err)
	}
	if score.Score != 7 {
		t.Errorf("expected score 7, got %d", score.Score)
	}
}

func TestRouter_InvalidBodyRejected(t *testing.T) {
	router, _ := newTestRouter(t, &stubQA{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader("not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_EvaluateSession(t *testing.T) {
	router, manager := newTestRouter(t, &stubQA{})
	defer manager.Shutdown()

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"role": "Backend Engineer", "job_description": "Builds services"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", body))
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("expected snapshot payload, got %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+snap.ID+"/evaluate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report models.EvaluationReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("expected report payload, got %v", err)
	}
	if report.OverallScore != 7 {
		t.Errorf("expected overall score 7, got %d", report.OverallScore)
	}
}

func TestRouter_NextQuestion(t *testing.T) {
	router, manager := newTestRouter(t, &stubQA{questions: []string{"Q1?", "Q2?"}})
	defer manager.Shutdown()

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"role": "Backend Engineer", "job_description": "Builds services"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", body))
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("expected snapshot payload, got %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+snap.ID+"/next-question", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("expected snapshot payload, got %v", err)
	}
	if snap.QuestionIndex != 1 {
		t.Errorf("expected question index 1, got %d", snap.QuestionIndex)
	}
}
