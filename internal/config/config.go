package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Host               string        `env:"HOST"                  envDefault:"0.0.0.0"`
	Port               string        `env:"PORT"                  envDefault:"8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT"       envDefault:"30s"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE" envDefault:"104857600"` // 100MB

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	JobsDir      string `env:"JOBS_DIR"       envDefault:"jobs"`
	WorkerCount  int    `env:"WORKER_COUNT"   envDefault:"2"`
	JobQueueSize int    `env:"JOB_QUEUE_SIZE" envDefault:"64"`
	JobStore     string `env:"JOB_STORE"      envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`

	KeyframeStdThreshold   float64 `env:"KEYFRAME_STD_THRESHOLD"   envDefault:"4.0"`
	OCRConfidenceThreshold float64 `env:"OCR_CONFIDENCE_THRESHOLD" envDefault:"0.5"`
	OCRLanguage            string  `env:"OCR_LANGUAGE"             envDefault:"eng"`
	FFmpegPath             string  `env:"FFMPEG_PATH"              envDefault:"ffmpeg"`
	FFprobePath            string  `env:"FFPROBE_PATH"             envDefault:"ffprobe"`

	DescriberEnabled   bool          `env:"DESCRIBER_ENABLED"    envDefault:"true"`
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL"`
	DescriberModel     string        `env:"DESCRIBER_MODEL"      envDefault:"gpt-4o-mini"`
	DescriberMaxTokens int           `env:"DESCRIBER_MAX_TOKENS" envDefault:"50"`
	DescriberTimeout   time.Duration `env:"DESCRIBER_TIMEOUT"    envDefault:"30s"`

	VideoFetchTimeout time.Duration `env:"VIDEO_FETCH_TIMEOUT" envDefault:"2m"`

	ArtifactMirror   string `env:"ARTIFACT_MIRROR"       envDefault:"none"`
	AzureAccountName string `env:"AZURE_STORAGE_ACCOUNT"`
	AzureAccountKey  string `env:"AZURE_STORAGE_KEY"`
	AzureContainer   string `env:"AZURE_CONTAINER"       envDefault:"lecture-results"`
	MinIOEndpoint    string `env:"MINIO_ENDPOINT"        envDefault:"localhost:9000"`
	MinIOAccessKey   string `env:"MINIO_ACCESS_KEY"      envDefault:"minioadmin"`
	MinIOSecretKey   string `env:"MINIO_SECRET_KEY"      envDefault:"minioadmin"`
	MinIOUseSSL      bool   `env:"MINIO_USE_SSL"         envDefault:"false"`
	MinIOBucket      string `env:"MINIO_BUCKET"          envDefault:"lecture-results"`

	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"lecture.jobs"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"lecture-indexer"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// MaxFileSizeLabel renders the upload limit the way the formats endpoint reports it.
func (c *Config) MaxFileSizeLabel() string {
	return fmt.Sprintf("%dMB", c.MaxRequestBodySize/(1024*1024))
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.DescriberTimeout <= 0 || c.VideoFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, describer=%s, fetch=%s)",
			c.RequestTimeout, c.DescriberTimeout, c.VideoFetchTimeout)
	}
	if c.WorkerCount <= 0 || c.JobQueueSize <= 0 {
		return fmt.Errorf("WORKER_COUNT and JOB_QUEUE_SIZE must be > 0 (got %d, %d)", c.WorkerCount, c.JobQueueSize)
	}
	if c.OCRConfidenceThreshold < 0 || c.OCRConfidenceThreshold > 1 {
		return fmt.Errorf("OCR_CONFIDENCE_THRESHOLD must be within [0, 1] (got %g)", c.OCRConfidenceThreshold)
	}
	if c.KeyframeStdThreshold < 0 {
		return fmt.Errorf("KEYFRAME_STD_THRESHOLD must be >= 0 (got %g)", c.KeyframeStdThreshold)
	}
	if c.DescriberMaxTokens <= 0 {
		return fmt.Errorf("DESCRIBER_MAX_TOKENS must be > 0 (got %d)", c.DescriberMaxTokens)
	}
	switch c.JobStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when JOB_STORE=postgres")
		}
	default:
		return fmt.Errorf("invalid JOB_STORE: %q", c.JobStore)
	}
	switch c.ArtifactMirror {
	case "none", "minio":
	case "azure":
		if c.AzureAccountName == "" || c.AzureAccountKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required when ARTIFACT_MIRROR=azure")
		}
	default:
		return fmt.Errorf("invalid ARTIFACT_MIRROR: %q", c.ArtifactMirror)
	}
	return nil
}
