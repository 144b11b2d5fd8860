// Package observability provides the metrics and monitoring HTTP
// server.
package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Status is the live state reported on the readiness endpoint.
type Status struct {
	ActiveSessions int  `json:"active_sessions"`
	Draining       bool `json:"draining"`
}

// StatusFunc supplies the current Status. nil means always ready,
// with no session information.
type StatusFunc func() Status

// Server serves Prometheus metrics and the health and readiness
// endpoints on a listener separate from the interview API.
type Server struct {
	server *http.Server
	addr   string
	status StatusFunc
}

// NewServer creates the observability HTTP server.
func NewServer(addr string, status StatusFunc) *Server {
	s := &Server{addr: addr, status: status}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", s.handleReady)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// handleReady reports 503 once the service starts draining so the
// load balancer stops routing new interviews to it; the body carries
// the live session count either way.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var st Status
	if s.status != nil {
		st = s.status()
	}
	w.Header().Set("Content-Type", "application/json")
	if st.Draining {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(st)
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting observability HTTP server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Observability HTTP server error")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down observability HTTP server")
	return s.server.Shutdown(ctx)
}
