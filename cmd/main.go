package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"ai-interview-orchestrator/internal/api/ws"
	"ai-interview-orchestrator/internal/app"
	"ai-interview-orchestrator/internal/clients"
	"ai-interview-orchestrator/internal/config"
	"ai-interview-orchestrator/internal/events"
	orchhttp "ai-interview-orchestrator/internal/http"
	"ai-interview-orchestrator/internal/observability"
	"ai-interview-orchestrator/internal/service/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}
	logger := application.Logger

	// Kafka publisher for transcript segment and evaluation report events
	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicReport:     cfg.Kafka.TopicReport,
		Principal:       cfg.Kafka.Principal,
	})
	defer publisher.Close()

	// Collaborator service clients
	qa := clients.NewQAClient(cfg.Backend.QAServiceURL, cfg.Backend.APIKey, cfg.Backend.RequestTimeout, logger)
	transcription := clients.NewTranscriptionClient(cfg.Backend.TranscriptionURL, cfg.Backend.APIKey, cfg.Backend.TranscribeTimeout, logger)
	evaluation := clients.NewEvaluationClient(cfg.Backend.EvaluationURL, cfg.Backend.APIKey, cfg.Backend.RequestTimeout, logger)

	manager := session.NewManager(session.ManagerDeps{
		Cfg:         cfg,
		QA:          qa,
		Transcriber: transcription,
		Evaluator:   evaluation,
		Publisher:   publisher,
		Logger:      logger,
	})

	// Prometheus metrics endpoint on its own listener. Readiness flips
	// to draining at shutdown so new interviews stop being routed here.
	var draining atomic.Bool
	metricsServer := observability.NewServer(":"+cfg.Observability.MetricsPort, func() observability.Status {
		return observability.Status{
			ActiveSessions: manager.Count(),
			Draining:       draining.Load(),
		}
	})
	metricsServer.Start()

	ingest := ws.NewHandler(manager, logger)
	router := orchhttp.NewRouter(application, manager, qa, ingest)
	server := &http.Server{
		Addr:    ":" + cfg.Service.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Service.HTTPPort).Msg("Interview orchestrator listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("Shutting down")
	draining.Store(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown failed")
	}
	manager.Shutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Metrics server shutdown failed")
	}
	application.Shutdown()
}
