// Package ws implements the WebSocket ingest endpoint. One connection
// carries a session's media uplink: binary messages for audio chunks
// and camera frames, text messages for energy samples. Closing the
// connection never tears the session down; only an explicit stop does.
package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/service/audio"
	"ai-interview-orchestrator/internal/service/session"
)

// Binary message kinds. The first byte of every binary message says
// what the rest of the payload is.
const (
	KindAudio byte = 0x01
	KindFrame byte = 0x02
)

// energySample is the text-message payload carrying a microphone RMS
// reading.
type energySample struct {
	Type string  `json:"type"`
	RMS  float64 `json:"rms"`
}

// Handler upgrades ingest requests and pumps media into sessions.
type Handler struct {
	manager  *session.Manager
	limits   audio.Limits
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler creates the ingest handler.
func NewHandler(manager *session.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		manager: manager,
		limits:  audio.DefaultLimits(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: logger.With().Str("component", "ws-ingest").Logger(),
	}
}

// ServeSession handles GET /v1/sessions/{id}/stream for the given
// session ID.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request, sessionId string) {
	sess, err := h.manager.Get(sessionId)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "session not found"}`))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("sessionId", sessionId).Msg("WebSocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	if h.limits.MaxFrameBytes > 0 {
		conn.SetReadLimit(int64(h.limits.MaxFrameBytes) + 16)
	}

	log := h.log.With().Str("sessionId", sessionId).Logger()
	log.Info().Msg("Ingest stream connected")

	guard := audio.NewGuard(h.limits)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Ingest stream closed unexpectedly")
			} else {
				log.Info().Msg("Ingest stream closed")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if !h.handleBinary(r, sess, guard, data, log) {
				return
			}
		case websocket.TextMessage:
			h.handleText(sess, data, log)
		}
	}
}

// handleBinary routes one binary message; a false return means the
// uplink guard tripped and the connection should close.
func (h *Handler) handleBinary(r *http.Request, sess *session.Session, guard *audio.Guard, data []byte, log zerolog.Logger) bool {
	if len(data) < 2 {
		return true
	}
	switch data[0] {
	case KindAudio:
		if err := guard.AcceptAudio(len(data) - 1); err != nil {
			log.Warn().Err(err).Msg("Uplink limit exceeded, closing ingest stream")
			return false
		}
		sess.OnAudioChunk(r.Context(), data[1:])
	case KindFrame:
		if err := guard.AcceptFrame(len(data) - 1); err != nil {
			log.Warn().Err(err).Msg("Oversized frame ignored")
			return !guard.Tripped()
		}
		sess.OnFrame(data[1:])
	default:
		log.Debug().Uint8("kind", data[0]).Msg("Unknown binary message kind, ignored")
	}
	return true
}

func (h *Handler) handleText(sess *session.Session, data []byte, log zerolog.Logger) {
	var sample energySample
	if err := json.Unmarshal(data, &sample); err != nil {
		log.Debug().Err(err).Msg("Malformed text message, ignored")
		return
	}
	if sample.Type != "energy" {
		return
	}
	sess.OnEnergySample(sample.RMS)
}
