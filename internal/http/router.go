// Package http exposes the orchestrator's REST surface and mounts the
// WebSocket ingest route.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ai-interview-orchestrator/internal/api/ws"
	"ai-interview-orchestrator/internal/app"
	"ai-interview-orchestrator/internal/service/session"
)

type createSessionRequest struct {
	Role           string `json:"role"`
	JobDescription string `json:"job_description"`
}

type generateQuestionsRequest struct {
	JobRole        string `json:"job_role"`
	JobDescription string `json:"job_description"`
}

type generateQuestionsResponse struct {
	Questions []string `json:"questions"`
}

type scoreAnswerRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application, manager *session.Manager, qa session.QAService, ingest *ws.Handler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", createSession(manager))
		r.Get("/sessions/{id}", getSession(manager))
		r.Delete("/sessions/{id}", stopSession(manager))
		r.Post("/sessions/{id}/evaluate", evaluateSession(manager))
		r.Post("/sessions/{id}/next-question", nextQuestion(manager))
		if ingest != nil {
			r.Get("/sessions/{id}/stream", func(w http.ResponseWriter, req *http.Request) {
				ingest.ServeSession(w, req, chi.URLParam(req, "id"))
			})
		}
		r.Post("/questions/generate", generateQuestions(qa))
		r.Post("/questions/score", scoreAnswer(qa))
	})

	return r
}

func createSession(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sess, err := manager.CreateSession(r.Context(), req.Role, req.JobDescription)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, sess.Snapshot())
	}
}

func getSession(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookup(w, r, manager)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func stopSession(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Stopping an unknown or already-stopped session is fine.
		if err := manager.StopSession(chi.URLParam(r, "id")); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func evaluateSession(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookup(w, r, manager)
		if !ok {
			return
		}
		report, err := sess.EvaluateNow(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func nextQuestion(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookup(w, r, manager)
		if !ok {
			return
		}
		sess.NextQuestion()
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func generateQuestions(qa session.QAService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if qa == nil {
			writeError(w, http.StatusServiceUnavailable, "question generation is not configured")
			return
		}
		var req generateQuestionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		questions, err := qa.GenerateQuestions(r.Context(), req.JobRole, req.JobDescription)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, generateQuestionsResponse{Questions: questions})
	}
}

func scoreAnswer(qa session.QAService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if qa == nil {
			writeError(w, http.StatusServiceUnavailable, "answer scoring is not configured")
			return
		}
		var req scoreAnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		score, err := qa.ScoreAnswer(r.Context(), req.Question, req.Answer)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, score)
	}
}

func lookup(w http.ResponseWriter, r *http.Request, manager *session.Manager) (*session.Session, bool) {
	sess, err := manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the error envelope; collaborator messages pass
// through verbatim so the client can display them.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
