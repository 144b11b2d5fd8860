// Package vision estimates interview presence metrics from sampled
// video frames. Every score is a heuristic proxy on a [1,10] scale:
// face-box centering stands in for eye contact, face-box size for
// posture, luminance for lighting, red/blue contrast for outfit
// definition. None of it is a trained model; the point is a stable,
// bounded signal the evaluation service can fuse with the transcript.
package vision

import (
	"image"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/config"
	"ai-interview-orchestrator/internal/models"
	"ai-interview-orchestrator/internal/observability/metrics"
)

// Box is a face bounding box in downscaled-frame coordinates.
type Box struct {
	X          int
	Y          int
	Width      int
	Height     int
	Confidence float64
}

// FaceDetector is the optional tier-1 face localization capability.
// When unavailable (nil, or an error from Detect) the estimator falls
// back to the skin-tone heuristic; a missing detector is never fatal.
type FaceDetector interface {
	Detect(img image.Image) (Box, bool, error)
}

// Estimator computes VisualMetrics from frames. It is stateful: when a
// frame has no detectable face, the centering and posture scores
// retain their previous values rather than snapping to neutral, so a
// single missed detection does not jitter the report.
type Estimator struct {
	mu       sync.Mutex
	cfg      config.VisualConfig
	detector FaceDetector
	energy   *EnergyTracker
	latest   models.VisualMetrics
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewEstimator creates an estimator. detector may be nil; the
// skin-tone heuristic then carries face localization alone.
func NewEstimator(cfg config.VisualConfig, detector FaceDetector, logger zerolog.Logger) *Estimator {
	return &Estimator{
		cfg:      cfg,
		detector: detector,
		energy:   NewEnergyTracker(cfg.EnergyMin, cfg.EnergyMax, 20),
		latest:   models.NeutralVisualMetrics(),
		log:      logger,
		metrics:  metrics.DefaultMetrics,
	}
}

// Latest returns the most recently computed metrics.
func (e *Estimator) Latest() models.VisualMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

// AnalyzeFrame computes metrics for one frame. rms is the current
// microphone RMS level (0 when unavailable). A nil or empty frame
// returns the previous metrics unchanged.
func (e *Estimator) AnalyzeFrame(img image.Image, rms float64) models.VisualMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	if img == nil {
		return e.latest
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return e.latest
	}

	frame := e.downscale(img)
	e.metrics.FramesAnalyzed.Inc()

	avgLuminance, avgContrast := e.sampleLuminance(frame)

	eyeContact := e.latest.EyeContact
	posture := e.latest.Posture
	faceDetected := false

	if box, ok := e.locateFace(frame); ok {
		faceDetected = true
		w := float64(frame.Rect.Dx())
		h := float64(frame.Rect.Dy())
		centerX := float64(box.X) + float64(box.Width)/2
		centerY := float64(box.Y) + float64(box.Height)/2
		cxNorm := math.Abs(centerX/w - e.cfg.IdealCenterX)
		cyNorm := math.Abs(centerY/h - e.cfg.IdealCenterY)
		eyeContact = clampScore(10 - int(math.Round((cxNorm+cyNorm)*e.cfg.CenterPenalty)))

		sizeRatio := float64(box.Width) * float64(box.Height) / (w * h)
		posture = clampScore(10 - int(math.Round(math.Abs(sizeRatio-e.cfg.IdealAreaRatio)*e.cfg.AreaPenalty)))
	}

	lighting := mapRangeToScore(avgLuminance, e.cfg.LuminanceMin, e.cfg.LuminanceMax)
	outfit := clampScore(int(math.Round(float64(mapRangeToScore(avgContrast, e.cfg.ContrastMin, e.cfg.ContrastMax)+lighting) / 2)))
	confidence := clampScore(int(math.Round(float64(e.energy.Observe(rms)+eyeContact+posture) / 3)))

	e.latest = models.VisualMetrics{
		EyeContact:       eyeContact,
		Posture:          posture,
		Outfit:           outfit,
		ConfidenceSignal: confidence,
		Lighting:         lighting,
		FaceDetected:     faceDetected,
		LightingLabel:    lightingLabel(lighting),
	}
	return e.latest
}

func lightingLabel(lighting int) models.LightingLabel {
	switch {
	case lighting >= 7:
		return models.LightingGood
	case lighting >= 4:
		return models.LightingModerate
	default:
		return models.LightingPoor
	}
}

// locateFace runs the two-tier localization: the platform detector
// when present, the skin-tone heuristic otherwise. Detector errors
// demote it for this frame only.
func (e *Estimator) locateFace(frame *image.RGBA) (Box, bool) {
	if e.detector != nil {
		box, ok, err := e.detector.Detect(frame)
		if err != nil {
			e.log.Debug().Err(err).Msg("Platform face detector failed, using heuristic")
		} else if ok {
			e.metrics.FaceDetections.WithLabelValues("platform").Inc()
			return box, true
		}
	}
	if box, ok := e.skinRegion(frame); ok {
		e.metrics.FaceDetections.WithLabelValues("heuristic").Inc()
		return box, true
	}
	return Box{}, false
}

// skinRegion is the tier-2 fallback: stride-sampled pixels matching a
// red-dominant skin rule vote for a bounding box, accepted only above
// a noise floor of matched points.
func (e *Estimator) skinRegion(frame *image.RGBA) (Box, bool) {
	width := frame.Rect.Dx()
	height := frame.Rect.Dy()
	stride := e.cfg.SampleStride
	if stride < 1 {
		stride = 1
	}

	minX, minY := width, height
	maxX, maxY := 0, 0
	skinPoints := 0

	for y := 0; y < height; y += stride {
		for x := 0; x < width; x += stride {
			i := frame.PixOffset(frame.Rect.Min.X+x, frame.Rect.Min.Y+y)
			r := int(frame.Pix[i])
			g := int(frame.Pix[i+1])
			b := int(frame.Pix[i+2])

			isSkinTone := r > e.cfg.SkinMinRed && g > e.cfg.SkinMinGreen && b > e.cfg.SkinMinBlue &&
				r > g && r > b && (r-g) > e.cfg.SkinRedDelta
			if !isSkinTone {
				continue
			}

			skinPoints++
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if skinPoints < e.cfg.MinSkinPoints || maxX <= minX || maxY <= minY {
		return Box{}, false
	}
	return Box{
		X:          minX,
		Y:          minY,
		Width:      maxX - minX,
		Height:     maxY - minY,
		Confidence: math.Min(1, float64(skinPoints)/(float64(width*height)/20)),
	}, true
}

// sampleLuminance computes average BT.709 luminance and red/blue
// contrast over every 6th pixel.
func (e *Estimator) sampleLuminance(frame *image.RGBA) (float64, float64) {
	var luminanceTotal, contrastTotal float64
	sampleCount := 0

	for i := 0; i+2 < len(frame.Pix); i += 24 {
		r := float64(frame.Pix[i])
		g := float64(frame.Pix[i+1])
		b := float64(frame.Pix[i+2])
		luminanceTotal += 0.2126*r + 0.7152*g + 0.0722*b
		contrastTotal += math.Abs(r - b)
		sampleCount++
	}
	if sampleCount == 0 {
		return 0, 0
	}
	return luminanceTotal / float64(sampleCount), contrastTotal / float64(sampleCount)
}

// downscale resizes the frame to the configured analysis resolution
// with nearest-neighbor sampling; full-resolution analysis buys no
// accuracy for these heuristics.
func (e *Estimator) downscale(img image.Image) *image.RGBA {
	src := img.Bounds()
	srcW := src.Dx()
	srcH := src.Dy()

	dstW := e.cfg.TargetWidth
	dstH := int(math.Round(float64(srcH) / float64(srcW) * float64(dstW)))
	if dstH < e.cfg.MinHeight {
		dstH = e.cfg.MinHeight
	}
	if srcW <= dstW && srcH <= dstH {
		dstW, dstH = srcW, srcH
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		sy := src.Min.Y + y*srcH/dstH
		for x := 0; x < dstW; x++ {
			sx := src.Min.X + x*srcW/dstW
			dst.Set(x, y, img.At(sx, sy))
		}
	}
	return dst
}

// Reset restores the estimator to its initial neutral state. Called
// between sessions.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest = models.NeutralVisualMetrics()
	e.energy.Reset()
}
