package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func readyz(t *testing.T, s *Server) (*httptest.ResponseRecorder, Status) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	s.server.Handler.ServeHTTP(rec, req)

	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode readiness body: %v", err)
	}
	return rec, st
}

func TestReadyz_ReportsActiveSessions(t *testing.T) {
	s := NewServer(":0", func() Status {
		return Status{ActiveSessions: 3}
	})

	rec, st := readyz(t, s)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if st.ActiveSessions != 3 {
		t.Errorf("expected 3 active sessions, got %d", st.ActiveSessions)
	}
	if st.Draining {
		t.Error("expected not draining")
	}
}

func TestReadyz_DrainingReturns503(t *testing.T) {
	s := NewServer(":0", func() Status {
		return Status{ActiveSessions: 1, Draining: true}
	})

	rec, st := readyz(t, s)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while draining, got %d", rec.Code)
	}
	if !st.Draining {
		t.Error("expected draining reported in body")
	}
}

func TestReadyz_NilStatusFuncIsReady(t *testing.T) {
	s := NewServer(":0", nil)

	rec, st := readyz(t, s)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 without a status source, got %d", rec.Code)
	}
	if st.ActiveSessions != 0 {
		t.Errorf("expected zero sessions, got %d", st.ActiveSessions)
	}
}

func TestHealthz(t *testing.T) {
	s := NewServer(":0", nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %q", rec.Body.String())
	}
}
