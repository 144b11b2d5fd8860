package session

import (
	"context"
	"errors"
)

// ErrPermissionDenied means the client could not grant camera or
// microphone access. Fatal to starting a session; surfaced once, never
// retried automatically.
var ErrPermissionDenied = errors.New("camera/microphone permission denied")

// Capture is the capability that owns the media devices for one
// session. Acquire is called exactly once at session start and Release
// exactly once at teardown, whatever happens in between.
type Capture interface {
	Acquire(ctx context.Context, sessionId string) error
	Release(sessionId string)
}

// streamCapture is the default capability: the client holds the actual
// devices and streams samples over the ingest socket, so acquisition
// always succeeds server-side.
type streamCapture struct{}

// NewStreamCapture returns the stream-backed capture capability.
func NewStreamCapture() Capture {
	return streamCapture{}
}

func (streamCapture) Acquire(ctx context.Context, sessionId string) error { return nil }

func (streamCapture) Release(sessionId string) {}
