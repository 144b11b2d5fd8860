// Package mock provides a mock recognition engine for running without
// cloud credentials. It simulates realistic speech-to-text behavior
// with progressive partial transcripts and exactly one final
// transcript per utterance.
package mock

import (
	"context"
	"sync"
	"time"

	"ai-interview-orchestrator/internal/service/stt"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials   []string // Progressive partial transcripts
	Final      string   // Final transcript text
	Confidence float64  // Confidence score for final
}

// DefaultUtterances provides sample interview answers for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"In my last", "In my last role I", "In my last role I led"},
		Final:      "In my last role I led a team of four engineers",
		Confidence: 0.94,
	},
	{
		Partials:   []string{"My biggest", "My biggest strength is"},
		Final:      "My biggest strength is breaking down ambiguous problems",
		Confidence: 0.97,
	},
	{
		Partials:   []string{"I would", "I would start by", "I would start by profiling"},
		Final:      "I would start by profiling the slowest endpoint",
		Confidence: 0.91,
	},
	{
		Partials:   []string{"We shipped", "We shipped the migration"},
		Final:      "We shipped the migration with zero downtime",
		Confidence: 0.89,
	},
	{
		Partials:   []string{"Thank you"},
		Final:      "Thank you for the question",
		Confidence: 0.98,
	},
}

// Adapter implements stt.Adapter with mock responses.
// It simulates realistic recognition behavior:
// - Multiple partial transcripts as audio is received
// - Exactly one final transcript when the utterance ends
type Adapter struct {
	cb            stt.Callback
	mu            sync.Mutex
	audioReceived int                // Count of audio frames received
	utterance     SimulatedUtterance // Current utterance being simulated
	partialIndex  int                // Next partial to send
	finalSent     bool               // Ensures only one final per utterance
	closed        bool
}

// utteranceCounter tracks which utterance to use next (cycles through defaults)
var (
	utteranceCounter int
	counterMu        sync.Mutex
)

// New creates a new mock recognition engine.
func New() *Adapter {
	counterMu.Lock()
	idx := utteranceCounter % len(DefaultUtterances)
	utteranceCounter++
	counterMu.Unlock()

	return &Adapter{
		utterance: DefaultUtterances[idx],
	}
}

// Start begins a mock recognition session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.cb = cb
	return nil
}

// SendAudio simulates receiving audio and triggers progressive partial
// transcripts. Once all partials have gone out, the next frame
// completes the utterance with a final transcript, mimicking silence
// detection.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil {
		return nil
	}

	a.audioReceived++

	if a.partialIndex < len(a.utterance.Partials) {
		partial := a.utterance.Partials[a.partialIndex]
		a.partialIndex++

		// Simulate processing delay
		go func(text string) {
			time.Sleep(50 * time.Millisecond)
			a.mu.Lock()
			if !a.closed && a.cb != nil {
				a.cb.OnPartial(text)
			}
			a.mu.Unlock()
		}(partial)
	} else if !a.finalSent {
		a.finalSent = true

		go func() {
			time.Sleep(100 * time.Millisecond)
			a.mu.Lock()
			cb := a.cb
			closed := a.closed
			utt := a.utterance
			a.mu.Unlock()

			if !closed && cb != nil {
				cb.OnFinal(utt.Final, utt.Confidence)
			}
		}()
	}

	return nil
}

// Close ends the mock session.
// If final wasn't sent via SendAudio (stream ended early), send it now.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	if !a.finalSent && a.cb != nil {
		a.finalSent = true
		cb := a.cb
		utt := a.utterance
		go func() {
			time.Sleep(100 * time.Millisecond)
			cb.OnFinal(utt.Final, utt.Confidence)
		}()
	}

	return nil
}
