// Package vad implements an adaptive-threshold voice activity
// detector. A short calibration window at session start estimates the
// ambient noise floor; after that the threshold is frozen and the
// detector classifies each energy sample into SILENT or SPEAKING,
// emitting boundary events on state transitions.
package vad

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/config"
	"ai-interview-orchestrator/internal/observability/metrics"
)

// State represents the detector state.
type State int

const (
	// StateSilent - no speech currently detected.
	StateSilent State = iota
	// StateSpeaking - speech detected, hangover window active.
	StateSpeaking
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateSilent:
		return "SILENT"
	case StateSpeaking:
		return "SPEAKING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Boundary is the event emitted by a single observation.
type Boundary int

const (
	// BoundaryNone - no state transition occurred.
	BoundaryNone Boundary = iota
	// BoundarySpeechStart - SILENT → SPEAKING transition.
	BoundarySpeechStart
	// BoundarySpeechEnd - SPEAKING → SILENT transition after the
	// hangover window elapsed. The buffered segment is ready.
	BoundarySpeechEnd
)

// String returns the string representation of the boundary.
func (b Boundary) String() string {
	switch b {
	case BoundaryNone:
		return "NONE"
	case BoundarySpeechStart:
		return "SPEECH_START"
	case BoundarySpeechEnd:
		return "SPEECH_END"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", b)
	}
}

// Detector is the adaptive-threshold state machine.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	SILENT → SPEAKING   the instant a sample exceeds the threshold
//	SPEAKING → SILENT   once no sample has exceeded the threshold for
//	                    the hangover window
//
// During the calibration period every sample feeds a bounded rolling
// window and the threshold tracks max(MinThreshold, mean*Gain). Once
// the period elapses the threshold is frozen for the session.
type Detector struct {
	mu  sync.Mutex
	cfg config.VADConfig
	log zerolog.Logger

	// now is injectable for tests.
	now func() time.Time

	startedAt  time.Time
	window     []float64
	threshold  float64
	frozen     bool
	state      State
	lastSpeech time.Time

	metrics *metrics.Metrics
}

// New creates a detector. The calibration clock starts on the first
// Observe call, not on construction.
func New(cfg config.VADConfig, logger zerolog.Logger) *Detector {
	return &Detector{
		cfg:       cfg,
		log:       logger,
		now:       time.Now,
		window:    make([]float64, 0, cfg.CalibrationWindow),
		threshold: cfg.MinThreshold,
		state:     StateSilent,
		metrics:   metrics.DefaultMetrics,
	}
}

// SetClock overrides the time source. Test hook.
func (d *Detector) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// State returns the current detector state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Speaking returns true if the detector is in SPEAKING state.
func (d *Detector) Speaking() bool {
	return d.State() == StateSpeaking
}

// Threshold returns the current detection threshold.
func (d *Detector) Threshold() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threshold
}

// Calibrating returns true while the calibration window is still open.
func (d *Detector) Calibrating() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.frozen
}

// Observe feeds one energy sample into the detector and returns the
// boundary event it produced, if any. Energy 0 is a valid sample (a
// sampler with no audio source reports 0 rather than failing) and can
// never exceed the threshold.
func (d *Detector) Observe(energy float64) Boundary {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.startedAt.IsZero() {
		d.startedAt = now
	}

	d.calibrate(energy, now)

	switch d.state {
	case StateSilent:
		if energy > d.threshold {
			d.state = StateSpeaking
			d.lastSpeech = now
			d.metrics.SpeechStarted.Inc()
			d.log.Debug().
				Float64("energy", energy).
				Float64("threshold", d.threshold).
				Msg("Speech started")
			return BoundarySpeechStart
		}
	case StateSpeaking:
		if energy > d.threshold {
			d.lastSpeech = now
			return BoundaryNone
		}
		if now.Sub(d.lastSpeech) > d.cfg.Hangover {
			d.state = StateSilent
			d.metrics.SpeechEnded.Inc()
			d.log.Debug().
				Dur("sinceLastSpeech", now.Sub(d.lastSpeech)).
				Msg("Speech ended")
			return BoundarySpeechEnd
		}
	}
	return BoundaryNone
}

// calibrate updates the rolling noise window and threshold while the
// calibration period is open, and freezes the threshold once it
// elapses. Caller holds the lock.
func (d *Detector) calibrate(energy float64, now time.Time) {
	if d.frozen {
		return
	}
	if now.Sub(d.startedAt) >= d.cfg.CalibrationPeriod {
		d.frozen = true
		d.log.Info().
			Float64("threshold", d.threshold).
			Int("samples", len(d.window)).
			Msg("Calibration complete, threshold frozen")
		return
	}

	d.window = append(d.window, energy)
	if len(d.window) > d.cfg.CalibrationWindow {
		d.window = d.window[1:]
	}

	var sum float64
	for _, e := range d.window {
		sum += e
	}
	mean := sum / float64(len(d.window))

	d.threshold = d.cfg.MinThreshold
	if t := mean * d.cfg.Gain; t > d.threshold {
		d.threshold = t
	}
	d.metrics.CalibrationThreshold.Set(d.threshold)
}
