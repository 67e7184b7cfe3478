// Package vertex implements llm.Generator on Gemini models served by
// Vertex AI, authenticated with Google Cloud credentials.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vbonduro/nutrisense/internal/llm"
)

type Config struct {
	ProjectID       string
	Location        string
	CredentialsFile string
	Model           string
}

type Generator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &Generator{
		client: client,
		model:  client.GenerativeModel(cfg.Model),
	}, nil
}

func (g *Generator) Close() error {
	return g.client.Close()
}

func (g *Generator) Generate(ctx context.Context, parts ...llm.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, toParts(parts)...)
	if err != nil {
		return "", fmt.Errorf("failed to call vertex: %w", classify(err))
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

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
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

type transientError struct{ err error }

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Transient() bool { return true }

func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: %v", llm.ErrBlocked, err)
	}
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.Unavailable, codes.Internal, codes.DeadlineExceeded:
		return &transientError{err: err}
	}
	return err
}
