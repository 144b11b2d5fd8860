// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"ai-interview-orchestrator/internal/observability/logging"
	"ai-interview-orchestrator/internal/observability/metrics"
)

// Publisher publishes session events to separate Kafka topics.
type Publisher struct {
	writerTranscript *kafka.Writer
	writerReport     *kafka.Writer
	principal        string
	topicTranscript  string
	topicReport      string
	enabled          bool
	metrics          *metrics.Metrics
	log              zerolog.Logger
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicTranscript string
	TopicReport     string
	Principal       string
	Enabled         bool
}

// New creates a new Kafka event publisher with separate topics for
// transcript segments and evaluation reports.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics
	logger := logging.WithComponent("kafka-publisher")

	// Handle nil config case
	if cfg == nil {
		logger.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
			log:     logger,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:       cfg.Principal,
			topicTranscript: cfg.TopicTranscript,
			topicReport:     cfg.TopicReport,
			enabled:         false,
			metrics:         m,
			log:             logger,
		}
	}

	// Create a custom dialer with longer timeouts for DNS resolution
	// in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	// Writer for transcript segments
	writerTranscript := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTranscript,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	// Writer for evaluation reports
	writerReport := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicReport,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", cfg.TopicTranscript).
		Str("topicReport", cfg.TopicReport).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscript: writerTranscript,
		writerReport:     writerReport,
		principal:        cfg.Principal,
		topicTranscript:  cfg.TopicTranscript,
		topicReport:      cfg.TopicReport,
		enabled:          true,
		metrics:          m,
		log:              logger,
	}
}

// PublishTranscript publishes a transcript segment event.
func (p *Publisher) PublishTranscript(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, "transcript", key, event)
}

// PublishReport publishes an evaluation report event.
func (p *Publisher) PublishReport(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerReport, p.topicReport, "report", key, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	// Log the event
	p.log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	// Publish to Kafka
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscript != nil {
		if e := p.writerTranscript.Close(); e != nil {
			p.log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	if p.writerReport != nil {
		if e := p.writerReport.Close(); e != nil {
			p.log.Error().Err(e).Msg("Error closing report writer")
			err = e
		}
	}
	return err
}
