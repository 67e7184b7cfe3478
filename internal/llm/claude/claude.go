package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/nutrisense/internal/llm"
)

// maxTokens leaves room for a verdict with a long ingredient list plus the
// recipe fields; chat answers are far shorter.
const maxTokens = 2048

type Generator struct {
	client *anthropic.Client
	model  string
}

type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at a different Messages API root.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func NewGenerator(apiKey, model string, opts ...Option) *Generator {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var clientOpts []anthropic.ClientOption
	if o.baseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, anthropic.WithHTTPClient(o.httpClient))
	}

	return &Generator{
		client: anthropic.NewClient(apiKey, clientOpts...),
		model:  model,
	}
}

// buildContent maps parts onto Messages API content blocks in order.
func buildContent(parts []llm.Part) []anthropic.MessageContent {
	content := make([]anthropic.MessageContent, 0, len(parts))
	for _, p := range parts {
		if p.IsMedia() {
			content = append(content, anthropic.MessageContent{
				Type: anthropic.MessagesContentTypeImage,
				Source: &anthropic.MessageContentSource{
					Type:      anthropic.MessagesContentSourceTypeBase64,
					MediaType: llm.NormaliseImageMIME(p.MIMEType),
					Data:      base64.StdEncoding.EncodeToString(p.Data),
				},
			})
			continue
		}
		content = append(content, anthropic.NewTextMessageContent(p.Text))
	}
	return content
}

func (g *Generator) Generate(ctx context.Context, parts ...llm.Part) (string, error) {
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: buildContent(parts),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", classify(err))
	}

	text := resp.GetFirstContentText()
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// transientError marks SDK errors the retry decorator may repeat.
type transientError struct{ err error }

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Transient() bool { return true }

func classify(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) && (apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr() || apiErr.IsApiErr()) {
		return &transientError{err: err}
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && (reqErr.StatusCode == http.StatusTooManyRequests || reqErr.StatusCode >= 500) {
		return &transientError{err: err}
	}
	return err
}
