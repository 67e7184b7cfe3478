package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/nutrisense/internal/analysis"
	"github.com/vbonduro/nutrisense/internal/config"
	"github.com/vbonduro/nutrisense/internal/llm"
	"github.com/vbonduro/nutrisense/internal/llm/claude"
	"github.com/vbonduro/nutrisense/internal/llm/gemini"
	"github.com/vbonduro/nutrisense/internal/llm/ollama"
	"github.com/vbonduro/nutrisense/internal/llm/vertex"
	"github.com/vbonduro/nutrisense/internal/logging"
	"github.com/vbonduro/nutrisense/internal/web"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Format: cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, closer, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeWithLog(closer, logger)

	model := llm.NewRetrying(gen, llm.RetryOptions{
		MaxRetries:      cfg.ModelMaxRetries,
		InitialInterval: cfg.ModelRetryInitial,
		AttemptTimeout:  cfg.ModelTimeout,
	}, logger)

	svc := analysis.NewService(model, logger)
	server := web.NewServer(svc, web.Options{
		ProjectName:    cfg.ProjectName,
		Version:        cfg.Version,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		WriteTimeout:   writeTimeout(cfg),
	}, logger)

	return server.Run(ctx, cfg.ListenAddr, cfg.ShutdownTimeout)
}

// writeTimeout leaves room for every attempt plus backoff waits.
func writeTimeout(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.ModelMaxRetries + 1)
	return cfg.ModelTimeout*attempts + 30*time.Second
}

func newGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.Generator, io.Closer, error) {
	switch cfg.ModelBackend {
	case config.BackendGemini:
		logger.Info("using Gemini model backend", "model", cfg.GeminiModel)
		g, err := gemini.NewGenerator(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case config.BackendVertex:
		logger.Info("using Vertex AI model backend",
			"model", cfg.VertexModel,
			"project", cfg.GoogleProjectID,
			"location", cfg.GoogleLocation,
		)
		g, err := vertex.NewGenerator(ctx, vertex.Config{
			ProjectID:       cfg.GoogleProjectID,
			Location:        cfg.GoogleLocation,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Model:           cfg.VertexModel,
		})
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case config.BackendClaude:
		logger.Info("using Claude model backend", "model", cfg.ClaudeModel)
		return claude.NewGenerator(cfg.ClaudeAPIKey, cfg.ClaudeModel), nil, nil
	case config.BackendOllama:
		logger.Info("using Ollama model backend", "model", cfg.OllamaModel, "host", cfg.OllamaHost)
		return ollama.NewGenerator(cfg.OllamaHost, cfg.OllamaModel), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown model backend %q", cfg.ModelBackend)
	}
}

func closeWithLog(c io.Closer, logger *slog.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Error("failed to close model client", "error", err)
	}
}
