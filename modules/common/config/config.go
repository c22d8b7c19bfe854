package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by GENAI_BACKEND.
const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

// MaxCategoriesLimit is the hard ceiling on categories requested per run.
const MaxCategoriesLimit = 12

// ErrMissingAPIKey is returned when the Gemini backend has no key to call with.
var ErrMissingAPIKey = errors.New("API key is not configured. Please set the GEMINI_API_KEY environment variable.")

// Config - every environment value the server reads
type Config struct {
	// Server
	AppEnv   string
	LogLevel string
	Port     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool
	JobTTL        time.Duration

	// Generative AI backend
	Backend                 string
	GeminiAPIKey            string
	VertexProject           string
	VertexLocation          string
	VertexCredentialsJSON   string
	VertexCredentialsPath   string
	DescribeModel           string
	SelectorModel           string
	ImageModel              string
	VideoModel              string
	VideoResolution         string
	VideoPollInterval       time.Duration
	VideoMaxPollAttempts    int
	MaxCategories           int
	DefaultCategories       []string
	GenerationConcurrency   int
	MaxUploadBytes          int64
	MaxVideoBytes           int64
	WorkerConcurrency       int
	CancelCheckInterval     time.Duration
	SyncGenerationTimeout   time.Duration
	AsyncGenerationDeadline time.Duration
}

var globalConfig *Config

// LoadConfig - load .env (if any) and the process environment
func LoadConfig() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		Port:     getEnv("PORT", "8080"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvBool("REDIS_USE_TLS", false),
		JobTTL:        getEnvDuration("JOB_TTL", 2*time.Hour),

		Backend:               strings.ToLower(getEnv("GENAI_BACKEND", BackendGemini)),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		VertexProject:         getEnv("VERTEXAI_PROJECT", ""),
		VertexLocation:        getEnv("VERTEXAI_LOCATION", "us-central1"),
		VertexCredentialsJSON: getEnv("VERTEXAI_CREDENTIALS_JSON", ""),
		VertexCredentialsPath: getEnv("VERTEXAI_CREDENTIALS_PATH", ""),

		DescribeModel:        getEnv("DESCRIBE_MODEL", "gemini-2.5-flash"),
		SelectorModel:        getEnv("SELECTOR_MODEL", "gemini-2.5-flash"),
		ImageModel:           getEnv("IMAGE_MODEL", "imagen-4.0-generate-001"),
		VideoModel:           getEnv("VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		VideoResolution:      getEnv("VIDEO_RESOLUTION", "720p"),
		VideoPollInterval:    getEnvDuration("VIDEO_POLL_INTERVAL", 10*time.Second),
		VideoMaxPollAttempts: getEnvInt("VIDEO_MAX_POLL_ATTEMPTS", 60),

		MaxCategories:         getEnvInt("MAX_CATEGORIES", MaxCategoriesLimit),
		DefaultCategories:     getEnvList("DEFAULT_CATEGORIES", nil),
		GenerationConcurrency: getEnvInt("GENERATION_CONCURRENCY", 0),
		MaxUploadBytes:        int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		MaxVideoBytes:         int64(getEnvInt("MAX_VIDEO_BYTES", 256*1024*1024)),

		WorkerConcurrency:       getEnvInt("WORKER_CONCURRENCY", 2),
		CancelCheckInterval:     getEnvDuration("CANCEL_CHECK_INTERVAL", 2*time.Second),
		SyncGenerationTimeout:   getEnvDuration("SYNC_GENERATION_TIMEOUT", 12*time.Minute),
		AsyncGenerationDeadline: getEnvDuration("ASYNC_GENERATION_DEADLINE", 15*time.Minute),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// GetConfig - the config loaded by LoadConfig, nil before that
func GetConfig() *Config {
	return globalConfig
}

// validate - required values and ranges
func (c *Config) validate() error {
	switch c.Backend {
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return ErrMissingAPIKey
		}
	case BackendVertex:
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEXAI_PROJECT is required when GENAI_BACKEND=vertex")
		}
	default:
		return fmt.Errorf("GENAI_BACKEND must be %q or %q, got %q", BackendGemini, BackendVertex, c.Backend)
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.VideoPollInterval <= 0 {
		return fmt.Errorf("VIDEO_POLL_INTERVAL must be positive")
	}
	if c.VideoMaxPollAttempts < 1 {
		return fmt.Errorf("VIDEO_MAX_POLL_ATTEMPTS must be at least 1")
	}
	if c.MaxCategories < 1 || c.MaxCategories > MaxCategoriesLimit {
		return fmt.Errorf("MAX_CATEGORIES must be between 1 and %d", MaxCategoriesLimit)
	}
	if c.GenerationConcurrency < 0 {
		return fmt.Errorf("GENERATION_CONCURRENCY must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxVideoBytes <= 0 {
		return fmt.Errorf("MAX_VIDEO_BYTES must be positive")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	return nil
}

// GetRedisAddr - host:port for the Redis client
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// IsDevelopment reports whether APP_ENV selects local development output.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("10s") or bare seconds ("10").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
