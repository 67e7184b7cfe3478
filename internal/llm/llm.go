package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("model returned no content")
	// ErrBlocked is returned when the provider refuses the prompt.
	ErrBlocked = errors.New("model refused the prompt")
)

// Generator is the capability handle for a generative model. Implementations
// are built once at startup and must be safe for concurrent use.
type Generator interface {
	// Generate sends the ordered parts as a single user turn and returns the
	// model's text answer.
	Generate(ctx context.Context, parts ...Part) (string, error)
}

// Part is one element of a prompt: either text or a binary media blob.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

func Text(s string) Part { return Part{Text: s} }

func Media(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsMedia reports whether p carries binary data rather than text.
func (p Part) IsMedia() bool { return p.Data != nil }

// StatusError reports a non-success HTTP status from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Transient reports whether retrying the same request may succeed.
func (e *StatusError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// NormaliseImageMIME maps browser MIME aliases to the canonical types model
// providers accept. Unknown types are coerced to jpeg; callers validate MIME
// types before reaching this layer.
func NormaliseImageMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp", "image/jpeg":
		return mimeType
	default:
		return "image/jpeg"
	}
}
