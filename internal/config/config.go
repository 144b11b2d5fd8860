// Package config loads service configuration from the environment,
// with an optional YAML tunables file for the heuristic constants.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the root configuration for the orchestrator.
type Configuration struct {
	Service       ServiceConfig
	Backend       BackendConfig
	Kafka         KafkaConfig
	Engine        EngineConfig
	VAD           VADConfig
	Visual        VisualConfig
	Evaluation    EvaluationConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

// BackendConfig points at the external collaborator services.
type BackendConfig struct {
	QAServiceURL      string
	TranscriptionURL  string
	EvaluationURL     string
	APIKey            string
	RequestTimeout    time.Duration
	TranscribeTimeout time.Duration
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicTranscript string
	TopicReport     string
	Principal       string
}

// EngineConfig selects and parameterizes the native recognition
// engine.
type EngineConfig struct {
	Provider       string // google, mock, none
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
	AudioEncoding  string
}

// VADConfig holds the voice activity detector tunables.
type VADConfig struct {
	PollInterval      time.Duration
	CalibrationPeriod time.Duration
	CalibrationWindow int
	MinThreshold      float64
	Gain              float64
	Hangover          time.Duration
	MaxBufferedChunks int
	MaxChunks         int
	MinDispatchBytes  int
}

// VisualConfig holds the frame estimator tunables. The face
// localization constants are empirical and deliberately configurable
// rather than fixed.
type VisualConfig struct {
	TargetWidth    int     `yaml:"targetWidth"`
	MinHeight      int     `yaml:"minHeight"`
	SampleStride   int     `yaml:"sampleStride"`
	LuminanceMin   float64 `yaml:"luminanceMin"`
	LuminanceMax   float64 `yaml:"luminanceMax"`
	ContrastMin    float64 `yaml:"contrastMin"`
	ContrastMax    float64 `yaml:"contrastMax"`
	SkinMinRed     int     `yaml:"skinMinRed"`
	SkinMinGreen   int     `yaml:"skinMinGreen"`
	SkinMinBlue    int     `yaml:"skinMinBlue"`
	SkinRedDelta   int     `yaml:"skinRedDelta"`
	MinSkinPoints  int     `yaml:"minSkinPoints"`
	IdealCenterX   float64 `yaml:"idealCenterX"`
	IdealCenterY   float64 `yaml:"idealCenterY"`
	IdealAreaRatio float64 `yaml:"idealAreaRatio"`
	CenterPenalty  float64 `yaml:"centerPenalty"`
	AreaPenalty    float64 `yaml:"areaPenalty"`
	EnergyMin      float64 `yaml:"energyMin"`
	EnergyMax      float64 `yaml:"energyMax"`
}

// EvaluationConfig holds the scheduler cadences and filler phrases.
type EvaluationConfig struct {
	FrameInterval time.Duration
	EvalInterval  time.Duration
	FillerPhrases []string
	QuestionCount int
}

// ObservabilityConfig holds metrics server settings.
type ObservabilityConfig struct {
	LogLevel    string
	MetricsPort string
}

// tunables is the subset of configuration that may be overridden by a
// YAML file pointed at by TUNABLES_FILE. Durations are expressed in
// milliseconds; absent keys keep their defaults.
type tunables struct {
	VAD        *vadTunables  `yaml:"vad"`
	Visual     *VisualConfig `yaml:"visual"`
	Evaluation *evalTunables `yaml:"evaluation"`
}

type vadTunables struct {
	PollIntervalMs      *int     `yaml:"pollIntervalMs"`
	CalibrationPeriodMs *int     `yaml:"calibrationPeriodMs"`
	CalibrationWindow   *int     `yaml:"calibrationWindow"`
	MinThreshold        *float64 `yaml:"minThreshold"`
	Gain                *float64 `yaml:"gain"`
	HangoverMs          *int     `yaml:"hangoverMs"`
	MaxBufferedChunks   *int     `yaml:"maxBufferedChunks"`
	MaxChunks           *int     `yaml:"maxChunks"`
	MinDispatchBytes    *int     `yaml:"minDispatchBytes"`
}

type evalTunables struct {
	FrameIntervalMs *int     `yaml:"frameIntervalMs"`
	EvalIntervalMs  *int     `yaml:"evalIntervalMs"`
	FillerPhrases   []string `yaml:"fillerPhrases"`
	QuestionCount   *int     `yaml:"questionCount"`
}

// Load builds the configuration from environment variables, applying
// defaults and then the optional tunables file.
func Load() (*Configuration, error) {
	cfg := &Configuration{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-interview-orchestrator"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Backend: BackendConfig{
			QAServiceURL:      envOrDefault("QA_SERVICE_URL", "http://localhost:5000"),
			TranscriptionURL:  envOrDefault("TRANSCRIPTION_URL", "http://localhost:5000"),
			EvaluationURL:     envOrDefault("EVALUATION_URL", "http://localhost:5000"),
			APIKey:            os.Getenv("BACKEND_API_KEY"),
			RequestTimeout:    envDuration("BACKEND_TIMEOUT", 60*time.Second),
			TranscribeTimeout: envDuration("TRANSCRIBE_TIMEOUT", 120*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:         envBool("KAFKA_ENABLED", false),
			Brokers:         envList("KAFKA_BROKERS"),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "interview.transcript.segment"),
			TopicReport:     envOrDefault("KAFKA_TOPIC_REPORT", "interview.evaluation.report"),
			Principal:       envOrDefault("SERVICE_PRINCIPAL", "svc-interview-orchestrator"),
		},
		Engine: EngineConfig{
			Provider:       envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   envInt("STT_SAMPLE_RATE_HZ", 16000),
			InterimResults: envBool("STT_INTERIM_RESULTS", true),
			AudioEncoding:  envOrDefault("STT_AUDIO_ENCODING", "WEBM_OPUS"),
		},
		VAD:        DefaultVAD(),
		Visual:     DefaultVisual(),
		Evaluation: DefaultEvaluation(),
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}

	if path := os.Getenv("TUNABLES_FILE"); path != "" {
		if err := cfg.applyTunables(path); err != nil {
			return nil, fmt.Errorf("loading tunables file %s: %w", path, err)
		}
	}
	return cfg, nil
}

// DefaultVAD returns the voice activity detector defaults.
func DefaultVAD() VADConfig {
	return VADConfig{
		PollInterval:      250 * time.Millisecond,
		CalibrationPeriod: 2200 * time.Millisecond,
		CalibrationWindow: 20,
		MinThreshold:      0.008,
		Gain:              2.2,
		Hangover:          1200 * time.Millisecond,
		MaxBufferedChunks: 4,
		MaxChunks:         16,
		MinDispatchBytes:  512,
	}
}

// DefaultVisual returns the frame estimator defaults. The constants
// mirror the heuristics the realtime scoring model was tuned against.
func DefaultVisual() VisualConfig {
	return VisualConfig{
		TargetWidth:    320,
		MinHeight:      180,
		SampleStride:   2,
		LuminanceMin:   35,
		LuminanceMax:   185,
		ContrastMin:    8,
		ContrastMax:    60,
		SkinMinRed:     80,
		SkinMinGreen:   45,
		SkinMinBlue:    30,
		SkinRedDelta:   12,
		MinSkinPoints:  90,
		IdealCenterX:   0.5,
		IdealCenterY:   0.45,
		IdealAreaRatio: 0.18,
		CenterPenalty:  20,
		AreaPenalty:    70,
		EnergyMin:      0.01,
		EnergyMax:      0.16,
	}
}

// DefaultEvaluation returns the scheduler defaults.
func DefaultEvaluation() EvaluationConfig {
	return EvaluationConfig{
		FrameInterval: 2 * time.Second,
		EvalInterval:  12 * time.Second,
		FillerPhrases: []string{"um", "uh", "like", "you know", "actually", "basically", "literally"},
		QuestionCount: 5,
	}
}

func (c *Configuration) applyTunables(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	t := tunables{Visual: &c.Visual}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return err
	}
	if t.Visual != nil {
		c.Visual = *t.Visual
	}
	if v := t.VAD; v != nil {
		applyMs(&c.VAD.PollInterval, v.PollIntervalMs)
		applyMs(&c.VAD.CalibrationPeriod, v.CalibrationPeriodMs)
		applyInt(&c.VAD.CalibrationWindow, v.CalibrationWindow)
		applyFloat(&c.VAD.MinThreshold, v.MinThreshold)
		applyFloat(&c.VAD.Gain, v.Gain)
		applyMs(&c.VAD.Hangover, v.HangoverMs)
		applyInt(&c.VAD.MaxBufferedChunks, v.MaxBufferedChunks)
		applyInt(&c.VAD.MaxChunks, v.MaxChunks)
		applyInt(&c.VAD.MinDispatchBytes, v.MinDispatchBytes)
	}
	if e := t.Evaluation; e != nil {
		applyMs(&c.Evaluation.FrameInterval, e.FrameIntervalMs)
		applyMs(&c.Evaluation.EvalInterval, e.EvalIntervalMs)
		if len(e.FillerPhrases) > 0 {
			c.Evaluation.FillerPhrases = e.FillerPhrases
		}
		applyInt(&c.Evaluation.QuestionCount, e.QuestionCount)
	}
	return nil
}

func applyMs(dst *time.Duration, src *int) {
	if src != nil {
		*dst = time.Duration(*src) * time.Millisecond
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
