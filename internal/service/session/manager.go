package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/config"
	"ai-interview-orchestrator/internal/service/segment"
	"ai-interview-orchestrator/internal/service/stt"
	"ai-interview-orchestrator/internal/service/stt/google"
	"ai-interview-orchestrator/internal/service/stt/mock"
)

// ErrSessionNotFound is returned for lookups of unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// EngineFactory builds a streaming speech adapter for a new session.
// A nil adapter with a nil error means no native engine is available
// and the session runs on segment transcription alone.
type EngineFactory func(ctx context.Context) (stt.Adapter, error)

// Manager tracks live sessions and owns the shared collaborators they
// borrow.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg           *config.Configuration
	qa            QAService
	transcriber   segment.Transcriber
	evaluator     EvaluationService
	publisher     ReportPublisher
	capture       Capture
	engineFactory EngineFactory
	log           zerolog.Logger
}

// ManagerDeps bundles the shared collaborators. QA, Transcriber,
// Evaluator, Publisher, Capture, and EngineFactory may each be nil;
// sessions then run without that capability.
type ManagerDeps struct {
	Cfg           *config.Configuration
	QA            QAService
	Transcriber   segment.Transcriber
	Evaluator     EvaluationService
	Publisher     ReportPublisher
	Capture       Capture
	EngineFactory EngineFactory
	Logger        zerolog.Logger
}

// NewManager creates a session manager. A nil EngineFactory falls back
// to the one configured by cfg.Engine.Provider.
func NewManager(deps ManagerDeps) *Manager {
	factory := deps.EngineFactory
	if factory == nil {
		factory = NewEngineFactory(deps.Cfg.Engine, deps.Logger)
	}
	return &Manager{
		sessions:      make(map[string]*Session),
		cfg:           deps.Cfg,
		qa:            deps.QA,
		transcriber:   deps.Transcriber,
		evaluator:     deps.Evaluator,
		publisher:     deps.Publisher,
		capture:       deps.Capture,
		engineFactory: factory,
		log:           deps.Logger.With().Str("component", "session-manager").Logger(),
	}
}

// NewEngineFactory maps the configured provider onto an adapter
// constructor. Unknown providers and "none" disable the native engine.
func NewEngineFactory(cfg config.EngineConfig, logger zerolog.Logger) EngineFactory {
	switch cfg.Provider {
	case "google":
		return func(ctx context.Context) (stt.Adapter, error) {
			return google.New(ctx, cfg)
		}
	case "mock":
		return func(ctx context.Context) (stt.Adapter, error) {
			return mock.New(), nil
		}
	default:
		if cfg.Provider != "" && cfg.Provider != "none" {
			logger.Warn().Str("provider", cfg.Provider).Msg("Unknown speech engine provider, native engine disabled")
		}
		return func(ctx context.Context) (stt.Adapter, error) {
			return nil, nil
		}
	}
}

// CreateSession builds and starts a new session. An engine
// construction failure is not fatal: the session starts without a
// native engine and degrades to segment transcription.
func (m *Manager) CreateSession(ctx context.Context, role, description string) (*Session, error) {
	id := uuid.New().String()

	engine, err := m.engineFactory(ctx)
	if err != nil {
		m.log.Warn().Err(err).Str("sessionId", id).Msg("Native engine construction failed, continuing without it")
		engine = nil
	}

	sess := New(id, role, description, Deps{
		Cfg:         m.cfg,
		QA:          m.qa,
		Transcriber: m.transcriber,
		Evaluator:   m.evaluator,
		Publisher:   m.publisher,
		Engine:      engine,
		Capture:     m.capture,
		Logger:      m.log,
	})
	if err := sess.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	return sess, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// StopSession tears a session down and removes it from the registry.
// Stopping an unknown or already-removed session is a successful
// no-op.
func (m *Manager) StopSession(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return sess.Stop()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops every live session. Used on process shutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.Stop(); err != nil {
			m.log.Warn().Err(err).Str("sessionId", sess.ID()).Msg("Session stop failed during shutdown")
		}
	}
}
