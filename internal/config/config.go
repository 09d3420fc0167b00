package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"inlet-captures"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	STTServiceURL string `envconfig:"STT_SERVICE_URL" default:"http://localhost:5000/transcribe"`
	YtdlpPath     string `envconfig:"YTDLP_PATH" default:"yt-dlp"`

	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	MediaTimeout time.Duration `envconfig:"MEDIA_TIMEOUT" default:"300s"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
	// StaleAfter bounds how long an item may sit in processing before the
	// reaper declares the run dead (e.g. a worker crash mid-job).
	StaleAfter time.Duration `envconfig:"STALE_AFTER" default:"1h"`

	ConsoleToken string `envconfig:"CONSOLE_TOKEN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("INLET", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// STTHealthURL derives the health endpoint from the configured transcribe URL.
func (c *Config) STTHealthURL() string {
	base := strings.TrimSuffix(c.STTServiceURL, "/transcribe")
	return base + "/health"
}
