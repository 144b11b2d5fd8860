package vision

import "math"

// EnergyTracker turns raw microphone RMS levels into a smoothed vocal
// energy score. It keeps a bounded window of recent per-sample scores
// and penalizes spread: a steady, moderate voice scores higher than
// one that swings between whisper and shout.
//
// Not safe for concurrent use; the Estimator serializes access.
type EnergyTracker struct {
	window  []int
	maxSize int
	min     float64
	max     float64
}

// NewEnergyTracker creates a tracker mapping RMS levels in [min,max]
// onto the score scale, with a bounded sample window.
func NewEnergyTracker(min, max float64, windowSize int) *EnergyTracker {
	return &EnergyTracker{
		window:  make([]int, 0, windowSize),
		maxSize: windowSize,
		min:     min,
		max:     max,
	}
}

// Observe records one RMS sample and returns the current vocal energy
// score. An RMS of zero (no signal, or no analyser at all) returns the
// neutral score without polluting the window.
func (e *EnergyTracker) Observe(rms float64) int {
	if rms == 0 {
		return neutralScore
	}

	score := mapRangeToScore(rms, e.min, e.max)
	e.window = append(e.window, score)
	if len(e.window) > e.maxSize {
		e.window = e.window[1:]
	}

	var sum, lo, hi int
	lo, hi = e.window[0], e.window[0]
	for _, s := range e.window {
		sum += s
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	avg := float64(sum) / float64(len(e.window))
	spread := float64(hi - lo)
	return clampScore(int(math.Round(avg - spread*0.2)))
}

// Reset clears the sample window.
func (e *EnergyTracker) Reset() {
	e.window = e.window[:0]
}
