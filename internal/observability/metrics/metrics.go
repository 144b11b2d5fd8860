// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interview_orchestrator"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsStopped prometheus.Counter
	SessionDuration prometheus.Histogram

	// VAD metrics
	SpeechStarted        prometheus.Counter
	SpeechEnded          prometheus.Counter
	CalibrationThreshold prometheus.Gauge
	ForcedFlushes        prometheus.Counter

	// Segment metrics
	SegmentsOpened     prometheus.Counter
	SegmentsDispatched prometheus.Counter
	SegmentsDiscarded  *prometheus.CounterVec
	SegmentsDropped    *prometheus.CounterVec
	SegmentBytes       prometheus.Histogram

	// Transcription metrics
	TranscriptionLatency prometheus.Histogram
	TranscriptionErrors  prometheus.Counter
	TranscriptAppends    prometheus.Counter

	// Frame metrics
	FramesAnalyzed prometheus.Counter
	FaceDetections *prometheus.CounterVec

	// Evaluation metrics
	EvaluationsTotal   prometheus.Counter
	EvaluationsFailed  prometheus.Counter
	EvaluationLatency  prometheus.Histogram
	AnswerScoresTotal  prometheus.Counter
	AnswerScoresFailed prometheus.Counter

	// Engine metrics
	EngineSelections *prometheus.CounterVec
	EngineFallbacks  *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of realtime sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently running sessions",
		}),
		SessionsStopped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_stopped_total",
			Help:      "Total number of sessions stopped",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of completed sessions",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 1800},
		}),
		SpeechStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vad_speech_started_total",
			Help:      "Total number of silent-to-speaking transitions",
		}),
		SpeechEnded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vad_speech_ended_total",
			Help:      "Total number of speaking-to-silent transitions",
		}),
		CalibrationThreshold: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vad_threshold",
			Help:      "Most recently computed voice activity threshold",
		}),
		ForcedFlushes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vad_forced_flushes_total",
			Help:      "Total number of buffer flushes forced without a speech boundary",
		}),
		SegmentsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_opened_total",
			Help:      "Total number of speech segments opened",
		}),
		SegmentsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_dispatched_total",
			Help:      "Total number of segments dispatched for transcription",
		}),
		SegmentsDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_discarded_total",
			Help:      "Total number of segments discarded without a network call",
		}, []string{"reason"}),
		SegmentsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_dropped_total",
			Help:      "Total number of segments dropped after a dispatch failure",
		}, []string{"reason"}),
		SegmentBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_bytes",
			Help:      "Payload size of dispatched segments",
			Buckets:   prometheus.ExponentialBuckets(512, 2, 10),
		}),
		TranscriptionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Latency of transcription service calls",
			Buckets:   prometheus.DefBuckets,
		}),
		TranscriptionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total number of failed transcription calls",
		}),
		TranscriptAppends: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_appends_total",
			Help:      "Total number of transcript append operations",
		}),
		FramesAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_analyzed_total",
			Help:      "Total number of video frames analyzed",
		}),
		FaceDetections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "face_detections_total",
			Help:      "Face localization outcomes by tier",
		}, []string{"tier"}),
		EvaluationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of fused evaluation calls",
		}),
		EvaluationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_failed_total",
			Help:      "Total number of failed evaluation calls",
		}),
		EvaluationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_latency_seconds",
			Help:      "Latency of realtime evaluation calls",
			Buckets:   prometheus.DefBuckets,
		}),
		AnswerScoresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_scores_total",
			Help:      "Total number of per-question answer scoring calls",
		}),
		AnswerScoresFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_scores_failed_total",
			Help:      "Total number of failed answer scoring calls",
		}),
		EngineSelections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_selections_total",
			Help:      "Speech engine selected at session start",
		}, []string{"engine"}),
		EngineFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_fallbacks_total",
			Help:      "Runtime speech engine degradations",
		}, []string{"from", "to"}),
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka publish attempts",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of failed Kafka publishes",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Latency of Kafka publishes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"}),
	}
}

// RecordSessionStart updates the session gauges for a new session.
func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionStop updates the session gauges for a stopped session.
func (m *Metrics) RecordSessionStop(durationSeconds float64) {
	m.SessionsStopped.Inc()
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordKafkaPublish records one Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, seconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(seconds)
}
