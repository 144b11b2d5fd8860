// Package stt defines the interface for streaming speech recognition
// engines. The orchestrator treats recognition as an optional
// capability: when no engine is available (or one fails
// unrecoverably) the session degrades to segment-level backend
// transcription instead.
package stt

import "context"

// Callback receives transcript results from the recognition engine.
type Callback interface {
	// OnPartial is called when an interim/partial transcript is received.
	OnPartial(text string)

	// OnFinal is called when a final transcript is received.
	OnFinal(text string, confidence float64)

	// OnError is called when an error occurs during recognition.
	OnError(err error)
}

// Adapter defines the interface for recognition engines (Google Cloud
// Speech, the in-process mock, etc.).
type Adapter interface {
	// Start begins a streaming recognition session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends audio bytes to the engine.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}
