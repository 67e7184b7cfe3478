package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/nutrisense/internal/domain"
	"github.com/vbonduro/nutrisense/internal/llm"
)

// Service turns ingredient lists and label photos into verdicts. Failures
// never reach the caller: analyses degrade to the fallback verdict and chat
// degrades to an apology.
type Service struct {
	model  llm.Generator
	logger *slog.Logger
}

func NewService(model llm.Generator, logger *slog.Logger) *Service {
	return &Service{model: model, logger: logger}
}

func (s *Service) AnalyzeText(ctx context.Context, text string, profile domain.HealthProfile) domain.ProductVerdict {
	prompt := BuildAnalysisPrompt(text, profile)
	return s.verdict(ctx, "analyze_text", profile, llm.Text(prompt))
}

// AnalyzeImage sends the photo as a media part followed by the instruction
// prompt.
func (s *Service) AnalyzeImage(ctx context.Context, image []byte, mimeType string, profile domain.HealthProfile) domain.ProductVerdict {
	prompt := BuildAnalysisPrompt(ImageInstruction, profile)
	return s.verdict(ctx, "analyze_image", profile, llm.Media(mimeType, image), llm.Text(prompt))
}

func (s *Service) verdict(ctx context.Context, op string, profile domain.HealthProfile, parts ...llm.Part) domain.ProductVerdict {
	start := time.Now()
	s.logger.InfoContext(ctx, "analysis started", "op", op, "profile", profile)

	raw, err := s.model.Generate(ctx, parts...)
	if err != nil {
		s.logger.ErrorContext(ctx, "model call failed", "op", op, "profile", profile, "error", err)
		return domain.FallbackVerdict()
	}

	v, err := ParseVerdict(raw)
	if err != nil {
		s.logger.ErrorContext(ctx, "parse verdict failed", "op", op, "profile", profile, "error", err)
		s.logger.DebugContext(ctx, "unparsed model response", "op", op, "raw", raw)
		return domain.FallbackVerdict()
	}

	s.logger.InfoContext(ctx, "analysis complete",
		"op", op,
		"profile", profile,
		"overall_risk", v.OverallRisk,
		"ingredients", len(v.IngredientsBreakdown),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return v
}

// AskFollowup answers a question about a previous analysis passed in as
// free-text context.
func (s *Service) AskFollowup(ctx context.Context, ex domain.ChatExchange) string {
	prompt := BuildChatPrompt(ex.Question, ex.Context, ex.Profile)

	answer, err := s.model.Generate(ctx, llm.Text(prompt))
	if err != nil {
		s.logger.ErrorContext(ctx, "chat model call failed", "profile", ex.Profile, "error", err)
		return domain.ChatApology
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		s.logger.WarnContext(ctx, "chat model returned blank answer", "profile", ex.Profile)
		return domain.ChatApology
	}
	return answer
}
