// Package session hosts the realtime interview session controller: it
// owns the detector, dispatcher, estimator and speech engine for one
// session, runs the three periodic tasks, and performs idempotent
// teardown. Nothing outside the controller mutates those components.
package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/clients"
	"ai-interview-orchestrator/internal/config"
	"ai-interview-orchestrator/internal/models"
	"ai-interview-orchestrator/internal/observability/metrics"
	"ai-interview-orchestrator/internal/schema"
	"ai-interview-orchestrator/internal/service/segment"
	"ai-interview-orchestrator/internal/service/stt"
	"ai-interview-orchestrator/internal/service/vad"
	"ai-interview-orchestrator/internal/service/vision"
)

// questionNumbering strips a leading "3. " style prefix off generated
// questions before they are sent back for scoring.
var questionNumbering = regexp.MustCompile(`^\d+\.\s*`)

// QAService generates questions and scores answers.
type QAService interface {
	GenerateQuestions(ctx context.Context, role, description string) ([]string, error)
	ScoreAnswer(ctx context.Context, question, answer string) (*models.AnswerScore, error)
}

// EvaluationService scores one fused multimodal sample.
type EvaluationService interface {
	Evaluate(ctx context.Context, req clients.EvaluationRequest) (*models.EvaluationReport, error)
}

// ReportPublisher emits evaluation report events. Satisfied by
// events.Publisher.
type ReportPublisher interface {
	PublishReport(ctx context.Context, key string, event any) error
}

// Deps bundles everything a session borrows rather than owns.
type Deps struct {
	Cfg         *config.Configuration
	QA          QAService
	Transcriber segment.Transcriber
	Evaluator   EvaluationService
	Publisher   ReportPublisher
	Engine      stt.Adapter // nil when no native engine is available
	Capture     Capture
	Logger      zerolog.Logger
}

// Snapshot is the session state exposed to the API.
type Snapshot struct {
	ID             string                   `json:"id"`
	Role           string                   `json:"role"`
	Transcript     string                   `json:"transcript"`
	Visual         models.VisualMetrics     `json:"visual"`
	Report         *models.EvaluationReport `json:"report,omitempty"`
	Engine         models.EngineState       `json:"engine"`
	Advisory       string                   `json:"advisory,omitempty"`
	Questions      []string                 `json:"questions"`
	QuestionIndex  int                      `json:"question_index"`
	SessionSeconds int                      `json:"session_seconds"`
	FillerWords    int                      `json:"filler_words"`
	Stopped        bool                     `json:"stopped"`
}

// Session is the controller for one realtime interview session.
type Session struct {
	mu sync.Mutex

	id          string
	role        string
	description string

	cfg        *config.Configuration
	detector   *vad.Detector
	dispatcher *segment.Dispatcher
	estimator  *vision.Estimator
	fillers    *FillerCounter
	validator  *schema.Validator

	engine         stt.Adapter
	engineState    models.EngineState
	hasTranscriber bool

	qa        QAService
	evaluator EvaluationService
	publisher ReportPublisher
	capture   Capture

	questions     []string
	questionIndex int
	answerStart   int // transcript offset where the current answer began

	latestFrame  []byte
	latestRMS    float64
	latestReport *models.EvaluationReport
	advisory     string
	evalInFlight bool

	startedAt time.Time
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// New creates a session controller. id must be unique; role may be
// empty (the evaluation payload then carries the "Candidate" default).
func New(id, role, description string, deps Deps) *Session {
	logger := deps.Logger.With().Str("component", "session").Str("sessionId", id).Logger()
	capture := deps.Capture
	if capture == nil {
		capture = NewStreamCapture()
	}
	return &Session{
		id:          id,
		role:        role,
		description: description,
		cfg:         deps.Cfg,
		detector:    vad.New(deps.Cfg.VAD, logger),
		dispatcher: segment.NewDispatcher(id, deps.Cfg.VAD.MaxChunks, deps.Cfg.VAD.MinDispatchBytes,
			deps.Transcriber, publisherOrNil(deps.Publisher), logger),
		estimator:      vision.NewEstimator(deps.Cfg.Visual, nil, logger),
		fillers:        NewFillerCounter(deps.Cfg.Evaluation.FillerPhrases),
		validator:      schema.New(),
		engine:         deps.Engine,
		engineState:    models.EngineIdle,
		hasTranscriber: deps.Transcriber != nil,
		qa:             deps.QA,
		evaluator:      deps.Evaluator,
		publisher:      deps.Publisher,
		capture:        capture,
		log:            logger,
		metrics:        metrics.DefaultMetrics,
	}
}

// publisherOrNil keeps a typed-nil ReportPublisher from leaking into
// the dispatcher as a non-nil interface.
func publisherOrNil(p ReportPublisher) segment.TranscriptPublisher {
	if tp, ok := p.(segment.TranscriptPublisher); ok && p != nil {
		return tp
	}
	return nil
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Start acquires capture, selects the speech engine, generates the
// question list when one is configured, and launches the three
// periodic tasks. Permission denial is fatal and not retried; a
// question-generation failure is an advisory only.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.capture.Acquire(ctx, s.id); err != nil {
		s.log.Error().Err(err).Msg("Capture acquisition failed")
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.started = true
	s.startedAt = time.Now()
	s.cancel = cancel
	s.mu.Unlock()

	s.selectEngine(runCtx)
	s.generateQuestions(ctx)

	s.wg.Add(3)
	go s.loop(runCtx, s.cfg.VAD.PollInterval, s.vadTick)
	go s.loop(runCtx, s.cfg.Evaluation.FrameInterval, s.frameTick)
	go s.loop(runCtx, s.cfg.Evaluation.EvalInterval, s.evalTick)

	s.metrics.RecordSessionStart()
	s.log.Info().
		Str("engine", string(s.EngineState())).
		Str("role", s.role).
		Msg("Session started")
	return nil
}

// selectEngine performs the one-time capability negotiation. The
// resulting state only ever degrades afterwards, never upgrades.
func (s *Session) selectEngine(ctx context.Context) {
	state := models.EngineNone
	if s.transcriberConfigured() {
		state = models.EngineBackendSTT
	}

	if s.engine != nil {
		if err := s.engine.Start(ctx, engineCallback{s: s}); err != nil {
			s.log.Warn().Err(err).Msg("Native engine unavailable at start")
			s.engine = nil
		} else if s.transcriberConfigured() {
			state = models.EngineHybrid
		} else {
			state = models.EngineNative
		}
	}

	s.mu.Lock()
	s.engineState = state
	s.mu.Unlock()
	s.metrics.EngineSelections.WithLabelValues(string(state)).Inc()
}

func (s *Session) transcriberConfigured() bool {
	return s.hasTranscriber
}

// generateQuestions fills the question list at start. Missing
// role/description or a backend failure leaves the list empty and
// sets an advisory; the session still runs.
func (s *Session) generateQuestions(ctx context.Context) {
	if s.qa == nil || s.role == "" || s.description == "" {
		return
	}
	if err := s.GenerateQuestions(ctx, s.role, s.description); err != nil {
		s.setAdvisory(err.Error())
	}
}

// GenerateQuestions replaces the session's question list for the given
// role and resets the question cursor. The answer offset moves to the
// end of the current transcript so old speech is not rescored.
func (s *Session) GenerateQuestions(ctx context.Context, role, description string) error {
	if s.qa == nil {
		return errors.New("question generation is not configured")
	}
	questions, err := s.qa.GenerateQuestions(ctx, role, description)
	if err != nil {
		return err
	}
	transcript := s.dispatcher.Transcript()

	s.mu.Lock()
	s.questions = questions
	s.questionIndex = 0
	s.answerStart = len(transcript)
	s.mu.Unlock()
	return nil
}

func (s *Session) loop(ctx context.Context, interval time.Duration, tick func()) {
	defer s.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}

// OnAudioChunk receives one raw audio chunk from the ingest stream. It
// feeds both the segment buffer and, in native/hybrid mode, the
// streaming engine.
func (s *Session) OnAudioChunk(ctx context.Context, chunk []byte) {
	if s.hasTranscriber {
		s.dispatcher.AddChunk(chunk)
	}

	s.mu.Lock()
	engine := s.engine
	state := s.engineState
	s.mu.Unlock()

	if engine == nil || (state != models.EngineNative && state != models.EngineHybrid) {
		return
	}
	if err := engine.SendAudio(ctx, chunk); err != nil {
		s.handleEngineError(err)
	}
}

// BufferedChunks reports how many audio chunks are waiting for the
// next dispatch.
func (s *Session) BufferedChunks() int {
	return s.dispatcher.BufferedChunks()
}

// OnEnergySample records the latest microphone RMS level for the VAD
// poll and the vocal-energy score.
func (s *Session) OnEnergySample(rms float64) {
	s.mu.Lock()
	s.latestRMS = rms
	s.mu.Unlock()
}

// OnFrame records the latest JPEG frame for the frame sampling task.
func (s *Session) OnFrame(jpeg []byte) {
	s.mu.Lock()
	s.latestFrame = jpeg
	s.mu.Unlock()
}

// vadTick is the 250ms task: one energy sample through the detector,
// boundary handling, and the forced-flush overflow rule.
func (s *Session) vadTick() {
	s.mu.Lock()
	rms := s.latestRMS
	s.mu.Unlock()

	boundary := s.detector.Observe(rms)

	flush := false
	switch boundary {
	case vad.BoundarySpeechEnd:
		flush = true
	case vad.BoundaryNone, vad.BoundarySpeechStart:
		// Overflow guard: a full buffer while not speaking goes out
		// anyway, bounding memory and latency when speech hovers just
		// under the threshold.
		if !s.detector.Speaking() && s.dispatcher.BufferedChunks() > s.cfg.VAD.MaxBufferedChunks {
			s.metrics.ForcedFlushes.Inc()
			flush = true
		}
	}
	if !flush {
		return
	}

	// Network work happens off the tick; the dispatcher's single-flight
	// flag keeps deliveries from overlapping.
	go func() {
		warning, err := s.dispatcher.Dispatch(context.Background())
		if err != nil {
			s.setAdvisory(err.Error())
			return
		}
		if warning != "" {
			s.setAdvisory(warning)
		}
	}()
}

// frameTick is the 2s task: decode the latest frame and refresh the
// visual metrics. No frame yet is a no-op.
func (s *Session) frameTick() {
	s.mu.Lock()
	frame := s.latestFrame
	rms := s.latestRMS
	s.mu.Unlock()

	if len(frame) == 0 {
		return
	}
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		s.log.Debug().Err(err).Msg("Frame decode failed, skipping sample")
		return
	}
	s.estimator.AnalyzeFrame(img, rms)
}

// evalTick is the 12s task. Successive ticks never overlap: a tick
// that finds the previous evaluation still pending is skipped.
func (s *Session) evalTick() {
	s.mu.Lock()
	if s.evalInFlight || s.stopped {
		s.mu.Unlock()
		return
	}
	s.evalInFlight = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.evalInFlight = false
			s.mu.Unlock()
		}()
		_, _ = s.evaluate(context.Background())
	}()
}

// EvaluateNow runs one evaluation immediately. It may overlap the
// periodic task; the transcript is append-only and read-only during
// evaluation, so overlap is harmless.
func (s *Session) EvaluateNow(ctx context.Context) (*models.EvaluationReport, error) {
	return s.evaluate(ctx)
}

func (s *Session) evaluate(ctx context.Context) (*models.EvaluationReport, error) {
	req := s.composeEvaluation()

	start := time.Now()
	s.metrics.EvaluationsTotal.Inc()
	report, err := s.evaluator.Evaluate(ctx, req)
	s.metrics.EvaluationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.EvaluationsFailed.Inc()
		s.setAdvisory(err.Error())
		s.log.Warn().Err(err).Msg("Evaluation failed, keeping previous report")
		return nil, err
	}

	// Best-effort per-question answer scoring rides along with each
	// successful evaluation.
	report.AnswerScore = s.scoreCurrentAnswer(ctx)

	s.mu.Lock()
	if s.stopped {
		// Teardown won the race; the result is discarded.
		s.mu.Unlock()
		return report, nil
	}
	s.latestReport = report
	s.advisory = ""
	s.mu.Unlock()

	s.publishReport(ctx, req, report)
	return report, nil
}

// composeEvaluation fuses the current transcript, visual metrics,
// pacing signals, and latest frame into one request payload.
func (s *Session) composeEvaluation() clients.EvaluationRequest {
	transcript := s.dispatcher.Transcript()
	visual := s.estimator.Latest()

	s.mu.Lock()
	frame := s.latestFrame
	startedAt := s.startedAt
	s.mu.Unlock()

	role := s.role
	if role == "" {
		role = "Candidate"
	}
	seconds := 1
	if !startedAt.IsZero() {
		seconds = int(math.Max(1, math.Round(time.Since(startedAt).Seconds())))
	}

	frameBase64 := ""
	if len(frame) > 0 {
		frameBase64 = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)
	}

	return clients.EvaluationRequest{
		Role:             role,
		JobDescription:   s.description,
		Transcript:       transcript,
		SessionSeconds:   seconds,
		FillerWords:      s.fillers.Count(transcript),
		EyeContact:       visual.EyeContact,
		Posture:          visual.Posture,
		Outfit:           visual.Outfit,
		ConfidenceSignal: visual.ConfidenceSignal,
		LightingScore:    visual.Lighting,
		FaceDetected:     visual.FaceDetected,
		FrameBase64:      frameBase64,
	}
}

// scoreCurrentAnswer scores the transcript delta since the current
// question began. No questions, no delta, or a scoring failure all
// yield nil; an empty answer is normal silence, not an error.
func (s *Session) scoreCurrentAnswer(ctx context.Context) *models.AnswerScore {
	if s.qa == nil {
		return nil
	}

	s.mu.Lock()
	var question string
	if len(s.questions) > 0 && s.questionIndex < len(s.questions) {
		question = questionNumbering.ReplaceAllString(s.questions[s.questionIndex], "")
		question = strings.TrimSpace(question)
	}
	answerStart := s.answerStart
	s.mu.Unlock()

	if question == "" {
		return nil
	}
	transcript := s.dispatcher.Transcript()
	if answerStart > len(transcript) {
		return nil
	}
	answer := strings.TrimSpace(transcript[answerStart:])
	if answer == "" {
		return nil
	}

	s.metrics.AnswerScoresTotal.Inc()
	score, err := s.qa.ScoreAnswer(ctx, question, answer)
	if err != nil {
		s.metrics.AnswerScoresFailed.Inc()
		s.setAdvisory(err.Error())
		return nil
	}
	return score
}

// publishReport emits the merged report as an event. Publish failures
// are logged, never surfaced.
func (s *Session) publishReport(ctx context.Context, req clients.EvaluationRequest, report *models.EvaluationReport) {
	if s.publisher == nil {
		return
	}
	ev := models.EvaluationReportEvent{
		EventType:      "interview.evaluation.report",
		SessionID:      s.id,
		Timestamp:      time.Now().UnixMilli(),
		SessionSeconds: req.SessionSeconds,
		FillerWords:    req.FillerWords,
		Report:         *report,
		Visual:         s.estimator.Latest(),
	}
	if err := s.validator.ValidateReport(ev); err != nil {
		s.log.Error().Err(err).Msg("Report event failed validation, not published")
		return
	}
	if err := s.publisher.PublishReport(ctx, s.id, ev); err != nil {
		s.log.Warn().Err(err).Msg("Report event publish failed")
	}
}

// NextQuestion advances to the next generated question and moves the
// answer offset to the end of the current transcript.
func (s *Session) NextQuestion() {
	transcript := s.dispatcher.Transcript()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return
	}
	if s.questionIndex+1 < len(s.questions) {
		s.questionIndex++
	}
	s.answerStart = len(transcript)
}

// EngineState returns the current speech engine state.
func (s *Session) EngineState() models.EngineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engineState
}

// handleEngineError applies the one-directional degradation policy:
// fatal engine errors demote native/hybrid to backend-stt when segment
// transcription is configured, otherwise to none. Transient errors
// leave the engine selected.
func (s *Session) handleEngineError(err error) {
	if !stt.IsFatal(err) {
		s.log.Debug().Err(err).Msg("Transient recognition error")
		return
	}

	s.mu.Lock()
	from := s.engineState
	if from != models.EngineNative && from != models.EngineHybrid {
		s.mu.Unlock()
		return
	}
	to := models.EngineNone
	if s.transcriberConfigured() {
		to = models.EngineBackendSTT
	}
	s.engineState = to
	engine := s.engine
	s.engine = nil
	s.mu.Unlock()

	if engine != nil {
		_ = engine.Close()
	}
	s.metrics.EngineFallbacks.WithLabelValues(string(from), string(to)).Inc()
	s.setAdvisory("Live speech recognition unavailable, continuing with segment transcription")
	s.log.Warn().
		Err(err).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Speech engine degraded")
}

// engineCallback bridges the streaming engine into the session.
type engineCallback struct {
	s *Session
}

func (c engineCallback) OnPartial(text string) {
	c.s.log.Debug().Str("partial", text).Msg("Interim transcript")
}

func (c engineCallback) OnFinal(text string, confidence float64) {
	c.s.dispatcher.AppendRecognized(text)
}

func (c engineCallback) OnError(err error) {
	c.s.handleEngineError(err)
}

// setAdvisory records a dismissible user-facing message. Component
// failures surface here instead of crossing task boundaries.
func (s *Session) setAdvisory(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.advisory = msg
}

// Snapshot returns the state exposed to the API.
func (s *Session) Snapshot() Snapshot {
	transcript := s.dispatcher.Transcript()
	visual := s.estimator.Latest()

	s.mu.Lock()
	defer s.mu.Unlock()

	seconds := 0
	if !s.startedAt.IsZero() {
		seconds = int(math.Max(1, math.Round(time.Since(s.startedAt).Seconds())))
	}
	return Snapshot{
		ID:             s.id,
		Role:           s.role,
		Transcript:     transcript,
		Visual:         visual,
		Report:         s.latestReport,
		Engine:         s.engineState,
		Advisory:       s.advisory,
		Questions:      s.questions,
		QuestionIndex:  s.questionIndex,
		SessionSeconds: seconds,
		FillerWords:    s.fillers.Count(transcript),
		Stopped:        s.stopped,
	}
}

// Stop tears the session down: cancels the periodic tasks (no tick
// fires after Stop returns), stops recognition, flushes the
// dispatcher, releases capture, and resets the engine state to idle.
// Idempotent; stopping a never-started or already-stopped session is a
// no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	engine := s.engine
	s.engine = nil
	startedAt := s.startedAt
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	if engine != nil {
		_ = engine.Close()
	}

	// Final best-effort flush of buffered audio, then seal.
	if warning, err := s.dispatcher.Close(context.Background()); err != nil {
		s.log.Warn().Err(err).Msg("Final segment flush failed")
	} else if warning != "" {
		s.log.Warn().Str("warning", warning).Msg("Final segment flush returned a warning")
	}

	s.capture.Release(s.id)

	s.mu.Lock()
	s.engineState = models.EngineIdle
	s.mu.Unlock()

	s.metrics.RecordSessionStop(time.Since(startedAt).Seconds())
	s.log.Info().Msg("Session stopped")
	return nil
}
