// Package audio enforces backpressure guardrails on the media uplink.
// These prevent unbounded resource usage from a misbehaving or
// malicious client.
package audio

import (
	"fmt"
	"sync"
	"time"
)

// Limits defines safety guardrails for one session's uplink.
type Limits struct {
	MaxChunkBytes   int           // Max size of a single audio chunk
	MaxFrameBytes   int           // Max size of a single camera frame
	MaxSessionBytes int64         // Max total audio bytes per session
	MaxDuration     time.Duration // Max uplink duration per session
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxChunkBytes:   256 * 1024,       // a chunk is ~100ms of Opus, this is generous
		MaxFrameBytes:   2 * 1024 * 1024,  // 2MB JPEG
		MaxSessionBytes: 64 * 1024 * 1024, // 64MB total audio (~90 minutes of Opus)
		MaxDuration:     2 * time.Hour,
	}
}

// Guard tracks one session's uplink usage against its limits. A guard
// that rejects input stays rejecting; the client must reconnect after
// fixing its behavior.
type Guard struct {
	mu         sync.Mutex
	limits     Limits
	startTime  time.Time
	audioBytes int64
	tripped    bool
}

// NewGuard creates a guard with the given limits. Zero-valued limit
// fields disable that check.
func NewGuard(limits Limits) *Guard {
	return &Guard{
		limits:    limits,
		startTime: time.Now(),
	}
}

// AcceptAudio records one audio chunk and reports whether it is within
// limits.
func (g *Guard) AcceptAudio(n int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tripped {
		return fmt.Errorf("uplink limit exceeded, stream rejected")
	}
	if g.limits.MaxChunkBytes > 0 && n > g.limits.MaxChunkBytes {
		g.tripped = true
		return fmt.Errorf("audio chunk too large: %d > %d", n, g.limits.MaxChunkBytes)
	}

	g.audioBytes += int64(n)
	if g.limits.MaxSessionBytes > 0 && g.audioBytes > g.limits.MaxSessionBytes {
		g.tripped = true
		return fmt.Errorf("max session audio exceeded: %d > %d", g.audioBytes, g.limits.MaxSessionBytes)
	}
	if g.limits.MaxDuration > 0 && time.Since(g.startTime) > g.limits.MaxDuration {
		g.tripped = true
		return fmt.Errorf("max uplink duration exceeded: %v > %v", time.Since(g.startTime), g.limits.MaxDuration)
	}
	return nil
}

// AcceptFrame reports whether one camera frame is within limits.
// Oversized frames are rejected individually without tripping the
// guard; a bad camera should not kill the audio path.
func (g *Guard) AcceptFrame(n int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tripped {
		return fmt.Errorf("uplink limit exceeded, stream rejected")
	}
	if g.limits.MaxFrameBytes > 0 && n > g.limits.MaxFrameBytes {
		return fmt.Errorf("frame too large: %d > %d", n, g.limits.MaxFrameBytes)
	}
	return nil
}

// Tripped reports whether the guard has rejected the uplink.
func (g *Guard) Tripped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped
}

// Usage holds current uplink usage for observability.
type Usage struct {
	AudioBytes int64
	Duration   time.Duration
}

// CurrentUsage returns the uplink usage so far.
func (g *Guard) CurrentUsage() Usage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Usage{
		AudioBytes: g.audioBytes,
		Duration:   time.Since(g.startTime),
	}
}
