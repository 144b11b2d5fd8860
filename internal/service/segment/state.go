// Package segment owns the utterance buffer and the single-flight
// dispatch discipline: audio chunks accumulate between voice activity
// boundaries, and at most one transcription call is in flight at any
// time.
package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a segment.
type State int

const (
	// StateOpen - Segment is accumulating chunks.
	StateOpen State = iota
	// StateDispatching - Payload handed to the transcription service,
	// response pending.
	StateDispatching
	// StateCommitted - Transcription returned and any text was
	// appended to the transcript.
	StateCommitted
	// StateDiscarded - Segment fell below the minimum payload size and
	// was thrown away without a network call. Not an error.
	StateDiscarded
	// StateDropped - Segment was abandoned due to a transcription
	// error. This is a terminal state. "Silence > bad data"
	StateDropped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateDispatching:
		return "DISPATCHING"
	case StateCommitted:
		return "COMMITTED"
	case StateDiscarded:
		return "DISCARDED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (COMMITTED,
// DISCARDED or DROPPED).
func (s State) IsTerminal() bool {
	return s == StateCommitted || s == StateDiscarded || s == StateDropped
}

// Errors for invalid state transitions.
var (
	ErrSegmentTerminal    = errors.New("segment is in a terminal state")
	ErrAlreadyDispatching = errors.New("segment dispatch already in flight")
	ErrNotDispatching     = errors.New("segment is not dispatching")
)

// Lifecycle manages the state machine for a single segment.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	OPEN → DISPATCHING → COMMITTED
//	  │         │
//	  │         └── Drop() ──→ DROPPED
//	  │
//	  └── Discard() ──→ DISCARDED
//
// Rules:
//   - OPEN: Can begin dispatch (once), can be discarded (payload too
//     small)
//   - DISPATCHING: Can commit or drop, cannot begin dispatch again
//   - COMMITTED / DISCARDED / DROPPED: All operations return errors
type Lifecycle struct {
	mu        sync.RWMutex
	segmentId string
	state     State
}

// NewLifecycle creates a new segment lifecycle in OPEN state.
func NewLifecycle(segmentId string) *Lifecycle {
	return &Lifecycle{
		segmentId: segmentId,
		state:     StateOpen,
	}
}

// SegmentId returns the segment ID.
func (l *Lifecycle) SegmentId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.segmentId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsTerminal returns true if the segment reached a terminal state.
func (l *Lifecycle) IsTerminal() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// BeginDispatch transitions OPEN → DISPATCHING.
// Returns nil if allowed (and transitions state), error if not.
func (l *Lifecycle) BeginDispatch() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateDispatching
		return nil
	case StateDispatching:
		return ErrAlreadyDispatching
	case StateCommitted, StateDiscarded, StateDropped:
		return ErrSegmentTerminal
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Commit transitions DISPATCHING → COMMITTED.
func (l *Lifecycle) Commit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateDispatching:
		l.state = StateCommitted
		return nil
	case StateOpen:
		return ErrNotDispatching
	default:
		return ErrSegmentTerminal
	}
}

// Discard transitions OPEN → DISCARDED. Used for payloads below the
// minimum size gate; treated as noise rather than an error.
func (l *Lifecycle) Discard() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateDiscarded
		return nil
	case StateDispatching:
		return ErrAlreadyDispatching
	default:
		return ErrSegmentTerminal
	}
}

// Drop transitions the segment to DROPPED state.
// Use when a transcription error occurs and the segment should be
// abandoned. "Silence > bad data" - it's better to append nothing than
// incorrect/incomplete text.
//
// Returns true if the segment was dropped, false if already terminal.
func (l *Lifecycle) Drop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateDropped
	return true
}
