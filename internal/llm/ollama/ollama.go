package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/nutrisense/internal/llm"
)

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type Generator struct {
	host   string
	model  string
	client *http.Client
}

func NewGenerator(host, model string) *Generator {
	return &Generator{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

// Generate joins text parts into one prompt; media parts travel base64
// encoded in the images field. Ollama infers the image format itself.
func (g *Generator) Generate(ctx context.Context, parts ...llm.Part) (string, error) {
	body := generateRequest{Model: g.model, Stream: false}

	var texts []string
	for _, p := range parts {
		if p.IsMedia() {
			body.Images = append(body.Images, base64.StdEncoding.EncodeToString(p.Data))
			continue
		}
		texts = append(texts, p.Text)
	}
	body.Prompt = strings.Join(texts, "\n\n")

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &llm.StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var respBody generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if strings.TrimSpace(respBody.Response) == "" {
		return "", llm.ErrEmptyResponse
	}
	return respBody.Response, nil
}
