package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the drawing service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"drawing-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"DRAWING_API_PORT" envDefault:"8290"`
	LogLevel        string        `env:"DRAWING_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseURL    string        `env:"DB_POSTGRESQL_DSN,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Storage Backend Selection
	StorageBackend string `env:"DRAWING_STORAGE_BACKEND" envDefault:"local"` // Options: "s3" or "local"

	// Local Storage Configuration
	LocalStoragePath string `env:"DRAWING_LOCAL_STORAGE_PATH" envDefault:"./drawing-data"`

	// S3 Storage Configuration
	S3Endpoint     string `env:"DRAWING_S3_ENDPOINT"`
	S3Region       string `env:"DRAWING_S3_REGION" envDefault:"us-west-2"`
	S3Bucket       string `env:"DRAWING_S3_BUCKET"`
	S3AccessKeyID  string `env:"DRAWING_S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"DRAWING_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"DRAWING_S3_USE_PATH_STYLE" envDefault:"true"`

	// Drawing Configuration
	MaxDrawingBytes int64 `env:"DRAWING_MAX_BYTES" envDefault:"52428800"` // 50 MB

	// Analysis Engine Configuration
	EngineBaseURL     string        `env:"ANALYSIS_ENGINE_BASE_URL" envDefault:"https://api.openai.com/v1"`
	EngineAPIKey      string        `env:"ANALYSIS_ENGINE_API_KEY"`
	EngineModel       string        `env:"ANALYSIS_ENGINE_MODEL" envDefault:"gpt-4o-mini"`
	EngineCallTimeout time.Duration `env:"ANALYSIS_ENGINE_TIMEOUT" envDefault:"90s"`
	EngineMaxRetries  int           `env:"ANALYSIS_ENGINE_MAX_RETRIES" envDefault:"3"`

	// Job Queue Configuration
	WorkerCount     int           `env:"ANALYSIS_WORKER_COUNT" envDefault:"4"`
	JobTimeout      time.Duration `env:"ANALYSIS_JOB_TIMEOUT" envDefault:"5m"`
	JobEventBuffer  int           `env:"ANALYSIS_JOB_EVENT_BUFFER" envDefault:"64"`
	WatchdogPeriod  time.Duration `env:"ANALYSIS_WATCHDOG_PERIOD" envDefault:"10s"`
	JobRetentionAge time.Duration `env:"ANALYSIS_JOB_RETENTION" envDefault:"1h"`

	// Export Configuration
	AllowEmptyExport bool   `env:"EXPORT_ALLOW_EMPTY" envDefault:"true"`
	ExportDateFormat string `env:"EXPORT_DATE_FORMAT" envDefault:"2006-01-02 15:04:05"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	if cfg.MaxDrawingBytes <= 0 {
		cfg.MaxDrawingBytes = 50 * 1024 * 1024
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.IsS3Storage() && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("DRAWING_S3_BUCKET is required when DRAWING_STORAGE_BACKEND is s3")
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return backend == "" || backend == "local"
}

// IsS3Storage returns true if S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "s3"
}
