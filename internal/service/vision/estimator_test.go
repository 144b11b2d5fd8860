package vision

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/config"
)

func uniformFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	gray  = color.RGBA{120, 120, 120, 255}
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
	skin  = color.RGBA{150, 100, 80, 255}
)

func newTestEstimator(detector FaceDetector) *Estimator {
	return NewEstimator(config.DefaultVisual(), detector, zerolog.Nop())
}

func checkScores(t *testing.T, name string, scores map[string]int) {
	t.Helper()
	for label, s := range scores {
		if s < 1 || s > 10 {
			t.Errorf("%s: score %s out of [1,10]: %d", name, label, s)
		}
	}
}

func TestEstimator_UniformGrayFrame(t *testing.T) {
	e := newTestEstimator(nil)

	m := e.AnalyzeFrame(uniformFrame(320, 240, gray), 0)

	if m.FaceDetected {
		t.Error("expected no face in uniform gray frame")
	}
	if m.Lighting < 5 || m.Lighting > 7 {
		t.Errorf("expected mid-gray lighting near neutral, got %d", m.Lighting)
	}
	// No face: centering and posture keep their prior (neutral) values
	if m.EyeContact != 6 || m.Posture != 6 {
		t.Errorf("expected retained neutral eye contact/posture, got %d/%d", m.EyeContact, m.Posture)
	}
	if m.LightingLabel != "Moderate" && m.LightingLabel != "Good" {
		t.Errorf("unexpected lighting label %q", m.LightingLabel)
	}
}

func TestEstimator_ScoresBoundedForExtremeFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame *image.RGBA
		rms   float64
	}{
		{"black frame", uniformFrame(320, 240, black), 0},
		{"white frame", uniformFrame(320, 240, white), 1.0},
		{"skin frame", uniformFrame(320, 240, skin), 0.0001},
		{"tiny frame", uniformFrame(2, 2, gray), 0.5},
		{"huge frame", uniformFrame(1920, 1080, white), 0.16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEstimator(nil)
			m := e.AnalyzeFrame(tt.frame, tt.rms)
			checkScores(t, tt.name, map[string]int{
				"eyeContact":       m.EyeContact,
				"posture":          m.Posture,
				"outfit":           m.Outfit,
				"confidenceSignal": m.ConfidenceSignal,
				"lighting":         m.Lighting,
			})
		})
	}
}

func TestEstimator_BlackFrameLightingPoor(t *testing.T) {
	e := newTestEstimator(nil)

	m := e.AnalyzeFrame(uniformFrame(320, 240, black), 0)

	if m.Lighting != 1 {
		t.Errorf("expected lighting 1 for black frame, got %d", m.Lighting)
	}
	if m.LightingLabel != "Poor" {
		t.Errorf("expected Poor lighting label, got %q", m.LightingLabel)
	}
}

func TestEstimator_SkinHeuristicDetectsFace(t *testing.T) {
	e := newTestEstimator(nil)

	m := e.AnalyzeFrame(uniformFrame(320, 240, skin), 0)

	if !m.FaceDetected {
		t.Fatal("expected skin-tone heuristic to detect a face region")
	}
	// A full-frame region is well centered but far too large
	if m.EyeContact < 8 {
		t.Errorf("expected high eye contact for centered region, got %d", m.EyeContact)
	}
	if m.Posture != 1 {
		t.Errorf("expected posture 1 for full-frame region, got %d", m.Posture)
	}
}

func TestEstimator_NoFaceRetainsPreviousCenteringScores(t *testing.T) {
	e := newTestEstimator(nil)

	withFace := e.AnalyzeFrame(uniformFrame(320, 240, skin), 0)
	if !withFace.FaceDetected {
		t.Fatal("expected face in skin frame")
	}

	withoutFace := e.AnalyzeFrame(uniformFrame(320, 240, gray), 0)

	if withoutFace.FaceDetected {
		t.Error("expected no face in gray frame")
	}
	if withoutFace.EyeContact != withFace.EyeContact {
		t.Errorf("expected eye contact retained (%d), got %d", withFace.EyeContact, withoutFace.EyeContact)
	}
	if withoutFace.Posture != withFace.Posture {
		t.Errorf("expected posture retained (%d), got %d", withFace.Posture, withoutFace.Posture)
	}
}

func TestEstimator_NilAndEmptyFramesReturnPrevious(t *testing.T) {
	e := newTestEstimator(nil)

	before := e.Latest()
	if got := e.AnalyzeFrame(nil, 0); got != before {
		t.Errorf("expected nil frame to return previous metrics")
	}
	if got := e.AnalyzeFrame(image.NewRGBA(image.Rect(0, 0, 0, 0)), 0); got != before {
		t.Errorf("expected empty frame to return previous metrics")
	}
}

type stubDetector struct {
	box Box
	ok  bool
	err error
}

func (s *stubDetector) Detect(img image.Image) (Box, bool, error) {
	return s.box, s.ok, s.err
}

func TestEstimator_PlatformDetectorPreferred(t *testing.T) {
	// A gray frame has no skin pixels, so a detection can only come
	// from the platform detector.
	det := &stubDetector{
		box: Box{X: 140, Y: 88, Width: 40, Height: 64, Confidence: 0.9},
		ok:  true,
	}
	e := newTestEstimator(det)

	m := e.AnalyzeFrame(uniformFrame(320, 240, gray), 0)

	if !m.FaceDetected {
		t.Fatal("expected platform detector result to be used")
	}
	if m.EyeContact < 8 {
		t.Errorf("expected high eye contact for centered box, got %d", m.EyeContact)
	}
}

func TestEstimator_DetectorErrorFallsBackToHeuristic(t *testing.T) {
	det := &stubDetector{err: errors.New("detector unavailable")}
	e := newTestEstimator(det)

	m := e.AnalyzeFrame(uniformFrame(320, 240, skin), 0)

	if !m.FaceDetected {
		t.Error("expected heuristic fallback when platform detector errors")
	}
}

func TestEstimator_Reset(t *testing.T) {
	e := newTestEstimator(nil)
	e.AnalyzeFrame(uniformFrame(320, 240, skin), 0.1)

	e.Reset()

	m := e.Latest()
	if m.EyeContact != 6 || m.Posture != 6 || m.FaceDetected {
		t.Errorf("expected neutral metrics after reset, got %+v", m)
	}
}

func TestMapRangeToScore(t *testing.T) {
	tests := []struct {
		value    float64
		min      float64
		max      float64
		expected int
	}{
		{35, 35, 185, 1},
		{185, 35, 185, 10},
		{110, 35, 185, 6},
		{0, 35, 185, 1},    // below range clamps
		{1000, 35, 185, 10}, // above range clamps
		{50, 50, 50, 6},     // degenerate range is neutral
	}

	for _, tt := range tests {
		if got := mapRangeToScore(tt.value, tt.min, tt.max); got != tt.expected {
			t.Errorf("mapRangeToScore(%v, %v, %v) = %d, want %d", tt.value, tt.min, tt.max, got, tt.expected)
		}
	}
}

func TestEnergyTracker_ZeroRMSIsNeutral(t *testing.T) {
	tr := NewEnergyTracker(0.01, 0.16, 20)

	if got := tr.Observe(0); got != 6 {
		t.Errorf("expected neutral score for zero RMS, got %d", got)
	}
}

func TestEnergyTracker_SteadyVoiceScoresHigherThanErratic(t *testing.T) {
	steady := NewEnergyTracker(0.01, 0.16, 20)
	var steadyScore int
	for i := 0; i < 20; i++ {
		steadyScore = steady.Observe(0.085)
	}

	erratic := NewEnergyTracker(0.01, 0.16, 20)
	var erraticScore int
	for i := 0; i < 20; i++ {
		rms := 0.015
		if i%2 == 0 {
			rms = 0.155
		}
		erraticScore = erratic.Observe(rms)
	}

	if steadyScore <= erraticScore {
		t.Errorf("expected steady voice (%d) to outscore erratic voice (%d)", steadyScore, erraticScore)
	}
}

func TestEnergyTracker_ScoreBounded(t *testing.T) {
	tr := NewEnergyTracker(0.01, 0.16, 20)
	for _, rms := range []float64{0.0001, 0.01, 0.08, 0.16, 5.0} {
		got := tr.Observe(rms)
		if got < 1 || got > 10 {
			t.Errorf("Observe(%v) = %d, out of [1,10]", rms, got)
		}
	}
}
