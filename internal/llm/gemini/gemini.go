// Package gemini implements llm.Generator on the Google AI Gemini API using
// an API key.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/vbonduro/nutrisense/internal/llm"
)

const DefaultModel = "gemini-2.5-flash-lite"

type Generator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGenerator dials the Gemini API. Close releases the underlying client.
func NewGenerator(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Generator, error) {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Generator{
		client: client,
		model:  client.GenerativeModel(model),
	}, nil
}

func (g *Generator) Close() error {
	return g.client.Close()
}

func (g *Generator) Generate(ctx context.Context, parts ...llm.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, toParts(parts)...)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", classify(err))
	}
	return responseText(resp)
}

func toParts(parts []llm.Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsMedia() {
			out = append(out, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
			continue
		}
		out = append(out, genai.Text(p.Text))
	}
	return out
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", llm.ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: %s", llm.ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", llm.ErrEmptyResponse
	}
	return sb.String(), nil
}

// transientError marks API errors the retry decorator may repeat.
type transientError struct{ err error }

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Transient() bool { return true }

func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: %v", llm.ErrBlocked, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500) {
		return &transientError{err: err}
	}
	return err
}

// ModelInfo describes a model reachable with the configured key.
type ModelInfo struct {
	Name        string
	DisplayName string
	Methods     []string
}

// SupportsGenerate reports whether the model serves generateContent.
func (m ModelInfo) SupportsGenerate() bool {
	for _, method := range m.Methods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

// ListModels returns every model visible to the API key.
func (g *Generator) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		models = append(models, ModelInfo{
			Name:        m.Name,
			DisplayName: m.DisplayName,
			Methods:     m.SupportedGenerationMethods,
		})
	}
	return models, nil
}
