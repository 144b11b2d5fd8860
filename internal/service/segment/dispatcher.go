package segment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/models"
	"ai-interview-orchestrator/internal/observability/metrics"
	"ai-interview-orchestrator/internal/schema"
)

const defaultMIMEHint = "audio/webm"

// Transcriber is the outbound transcription contract. Errors are
// non-fatal to the session; the segment is dropped and the next
// boundary tries again.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (models.TranscriptionResult, error)
}

// TranscriptPublisher emits transcript segment events. Satisfied by
// events.Publisher.
type TranscriptPublisher interface {
	PublishTranscript(ctx context.Context, key string, event any) error
}

// Dispatcher owns the chunk buffer and the running transcript for one
// session, and enforces the single-flight dispatch rule: at most one
// transcription call in flight at a time. A boundary that arrives while
// a dispatch is pending is a no-op; the new segment's chunks keep
// accumulating and go out on the next boundary.
type Dispatcher struct {
	mu        sync.Mutex
	sessionId string
	minBytes  int

	buffer   *Buffer
	gen      *Generator
	current  *Lifecycle
	inFlight bool
	idle     *sync.Cond // signalled when inFlight resets
	closed   bool

	transcript []string

	transcriber Transcriber
	publisher   TranscriptPublisher
	validator   *schema.Validator
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

// NewDispatcher creates a dispatcher for one session. publisher may be
// nil when event publishing is disabled.
func NewDispatcher(sessionId string, maxChunks, minBytes int, transcriber Transcriber, publisher TranscriptPublisher, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		sessionId:   sessionId,
		minBytes:    minBytes,
		buffer:      NewBuffer(maxChunks),
		gen:         NewGenerator(),
		transcriber: transcriber,
		publisher:   publisher,
		validator:   schema.New(),
		log:         logger,
		metrics:     metrics.DefaultMetrics,
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// AddChunk buffers one raw audio chunk. Chunks arriving after Close
// are dropped.
func (d *Dispatcher) AddChunk(chunk []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || len(chunk) == 0 {
		return
	}
	if d.current == nil || d.current.IsTerminal() {
		d.current = NewLifecycle(d.gen.Next(d.sessionId))
		d.metrics.SegmentsOpened.Inc()
	}
	d.buffer.Append(chunk)
}

// BufferedChunks returns the number of chunks awaiting dispatch.
func (d *Dispatcher) BufferedChunks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffer.Len()
}

// Transcript returns the running transcript, segments joined by a
// single space.
func (d *Dispatcher) Transcript() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.transcript, " ")
}

// AppendRecognized appends text produced by the native recognition
// engine. Empty text and text arriving after Close are no-ops.
func (d *Dispatcher) AppendRecognized(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appendLocked(text)
}

func (d *Dispatcher) appendLocked(text string) {
	text = strings.TrimSpace(text)
	if d.closed || text == "" {
		return
	}
	d.transcript = append(d.transcript, text)
	d.metrics.TranscriptAppends.Inc()
}

// Dispatch packages the buffered chunks and sends them for
// transcription. Returns the service's warning, if any.
//
// No-op cases: empty buffer, a dispatch already in flight (the
// single-flight rule), a payload below the minimum size gate, and an
// empty transcription result. None of these are errors.
func (d *Dispatcher) Dispatch(ctx context.Context) (string, error) {
	d.mu.Lock()
	if d.closed || d.inFlight || d.buffer.Len() == 0 {
		d.mu.Unlock()
		return "", nil
	}

	lifecycle := d.current
	d.current = nil
	payload := d.buffer.Drain()

	if len(payload) < d.minBytes {
		if lifecycle != nil {
			_ = lifecycle.Discard()
		}
		d.metrics.SegmentsDiscarded.WithLabelValues("below_min_bytes").Inc()
		d.log.Debug().
			Int("bytes", len(payload)).
			Int("minBytes", d.minBytes).
			Msg("Segment below minimum size, discarded")
		d.mu.Unlock()
		return "", nil
	}

	if lifecycle == nil {
		lifecycle = NewLifecycle(d.gen.Next(d.sessionId))
	}
	if err := lifecycle.BeginDispatch(); err != nil {
		d.mu.Unlock()
		return "", err
	}
	d.inFlight = true
	d.mu.Unlock()

	start := time.Now()
	result, err := d.transcriber.Transcribe(ctx, payload, defaultMIMEHint)
	elapsed := time.Since(start)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight = false
	d.idle.Broadcast()

	if err != nil {
		lifecycle.Drop()
		d.metrics.TranscriptionErrors.Inc()
		d.metrics.SegmentsDropped.WithLabelValues("transcription_error").Inc()
		d.log.Warn().
			Err(err).
			Str("segmentId", lifecycle.SegmentId()).
			Msg("Transcription failed, segment dropped")
		return "", fmt.Errorf("transcribing segment %s: %w", lifecycle.SegmentId(), err)
	}

	if d.closed {
		// Teardown completed while the call was in flight; the result
		// is discarded.
		lifecycle.Drop()
		d.metrics.SegmentsDropped.WithLabelValues("session_closed").Inc()
		return result.Warning, nil
	}

	_ = lifecycle.Commit()
	d.metrics.SegmentsDispatched.Inc()
	d.metrics.SegmentBytes.Observe(float64(len(payload)))
	d.metrics.TranscriptionLatency.Observe(elapsed.Seconds())

	text := strings.TrimSpace(result.Text)
	if text != "" {
		d.appendLocked(text)
		d.publishLocked(ctx, lifecycle.SegmentId(), text, len(payload))
	}
	if result.Warning != "" {
		d.log.Warn().
			Str("segmentId", lifecycle.SegmentId()).
			Str("warning", result.Warning).
			Msg("Transcription returned a warning")
	}
	return result.Warning, nil
}

// publishLocked emits a transcript segment event. Publish failures are
// logged, never surfaced; the transcript append already happened.
func (d *Dispatcher) publishLocked(ctx context.Context, segmentId, text string, bytes int) {
	if d.publisher == nil {
		return
	}
	ev := models.TranscriptSegmentEvent{
		EventType: "interview.transcript.segment",
		SessionID: d.sessionId,
		SegmentID: segmentId,
		Timestamp: time.Now().UnixMilli(),
		Text:      text,
		Bytes:     bytes,
	}
	if err := d.validator.ValidateTranscript(ev); err != nil {
		d.log.Error().Err(err).Msg("Transcript event failed validation, not published")
		return
	}
	if err := d.publisher.PublishTranscript(ctx, d.sessionId, ev); err != nil {
		d.log.Warn().Err(err).Msg("Transcript event publish failed")
	}
}

// Close flushes any buffered chunks as a final best-effort segment,
// then seals the dispatcher: later chunks and transcription results
// arriving from in-flight calls are discarded. Idempotent.
func (d *Dispatcher) Close(ctx context.Context) (string, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", nil
	}
	// Wait out an in-flight dispatch so the final flush is not
	// skipped by the single-flight rule.
	for d.inFlight {
		d.idle.Wait()
	}
	d.mu.Unlock()

	warning, err := d.Dispatch(ctx)

	d.mu.Lock()
	d.closed = true
	d.buffer.Reset()
	d.mu.Unlock()
	return warning, err
}
