package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned by Validate when the selected model
// backend has no credential configured.
var ErrMissingCredential = errors.New("missing model credential")

const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
	BackendClaude = "claude"
	BackendOllama = "ollama"
)

type Config struct {
	ListenAddr         string
	ProjectName        string
	Version            string
	APIPrefix          string
	CORSAllowedOrigins []string

	ModelBackend          string
	GoogleAPIKey          string
	GeminiModel           string
	GoogleProjectID       string
	GoogleLocation        string
	GoogleCredentialsFile string
	VertexModel           string
	ClaudeAPIKey          string
	ClaudeModel           string
	OllamaHost            string
	OllamaModel           string

	ModelTimeout      time.Duration
	ModelMaxRetries   int
	ModelRetryInitial time.Duration

	MaxUploadBytes  int64
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFile   string
	LogFormat string
}

// Load reads configuration from the environment. Values in a .env file in
// the working directory are applied first but never override variables that
// are already set.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8000"),
		ProjectName:        getEnv("PROJECT_NAME", "NutriSense AI"),
		Version:            getEnv("VERSION", "1.0.0"),
		APIPrefix:          strings.TrimRight(getEnv("API_PREFIX", "/api/v1"), "/"),
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		ModelBackend:          strings.ToLower(getEnv("MODEL_BACKEND", BackendGemini)),
		GoogleAPIKey:          getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleLocation:        getEnv("GOOGLE_LOCATION", "us-central1"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		VertexModel:           getEnv("VERTEX_MODEL", "gemini-2.5-flash-lite"),
		ClaudeAPIKey:          getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:           getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:            getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:           getEnv("OLLAMA_MODEL", "llava"),

		ModelTimeout:      getDuration("MODEL_TIMEOUT", 30*time.Second),
		ModelMaxRetries:   getInt("MODEL_MAX_RETRIES", 2),
		ModelRetryInitial: getDuration("MODEL_RETRY_INITIAL", 500*time.Millisecond),

		MaxUploadBytes:  int64(getInt("MAX_UPLOAD_BYTES", 10<<20)),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate reports configuration the server cannot start with.
func (c *Config) Validate() error {
	switch c.ModelBackend {
	case BackendGemini:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("%w: GOOGLE_API_KEY is required when MODEL_BACKEND=gemini", ErrMissingCredential)
		}
	case BackendVertex:
		if c.GoogleProjectID == "" || c.GoogleLocation == "" {
			return fmt.Errorf("%w: GOOGLE_PROJECT_ID and GOOGLE_LOCATION are required when MODEL_BACKEND=vertex", ErrMissingCredential)
		}
	case BackendClaude:
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("%w: CLAUDE_API_KEY is required when MODEL_BACKEND=claude", ErrMissingCredential)
		}
	case BackendOllama:
		if c.OllamaHost == "" {
			return errors.New("OLLAMA_HOST is required when MODEL_BACKEND=ollama")
		}
	default:
		return fmt.Errorf("unknown MODEL_BACKEND %q", c.ModelBackend)
	}

	if c.ModelTimeout <= 0 {
		return errors.New("MODEL_TIMEOUT must be positive")
	}
	if c.ModelMaxRetries < 0 {
		return errors.New("MODEL_MAX_RETRIES must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val)
		return defaultVal
	}
	return n
}

// getDuration accepts Go duration strings ("30s") or a bare number of seconds.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	val = strings.TrimSpace(val)
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("invalid duration in environment, using default", "key", key, "value", val)
	return defaultVal
}

func getList(key string, defaultVal []string) []string {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
