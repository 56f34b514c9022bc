package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string

	DatabaseURL string

	SearchEndpoint string
	SearchIndex    string
	SearchUsername string
	SearchPassword string

	QueueURL                string
	QueueVisibilitySeconds  int
	WorkerConcurrency       int
	WorkerMaxReceives       int
	WorkerShutdownTimeout   time.Duration
	UploadURLExpiry         time.Duration
	DownloadURLExpiry       time.Duration
	MetricsAddr             string
	TransientRetryAttempts  int
	TransientRetryBaseDelay time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of a local env file for dev convenience.
	_ = godotenv.Load()

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             normalizeEnv(getEnv("ENV", "dev")),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		SearchEndpoint: getEnv("OPENSEARCH_ENDPOINT", ""),
		SearchIndex:    getEnv("OPENSEARCH_INDEX", "documents"),
		SearchUsername: getEnv("OPENSEARCH_USERNAME", ""),
		SearchPassword: getEnv("OPENSEARCH_PASSWORD", ""),

		QueueURL:                getEnv("SQS_QUEUE_URL", ""),
		QueueVisibilitySeconds:  getEnvInt("SQS_VISIBILITY_TIMEOUT_SECONDS", 300),
		WorkerConcurrency:       getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerMaxReceives:       getEnvInt("WORKER_MAX_RECEIVES", 5),
		WorkerShutdownTimeout:   getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),
		UploadURLExpiry:         getEnvDuration("UPLOAD_URL_EXPIRY", 60*time.Second),
		DownloadURLExpiry:       getEnvDuration("DOWNLOAD_URL_EXPIRY", 300*time.Second),
		MetricsAddr:             getEnv("METRICS_ADDR", ""),
		TransientRetryAttempts:  getEnvInt("TRANSIENT_RETRY_ATTEMPTS", 3),
		TransientRetryBaseDelay: getEnvDuration("TRANSIENT_RETRY_BASE_DELAY", 200*time.Millisecond),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
