// Command listmodels prints the Gemini models available to GOOGLE_API_KEY
// that can serve content generation.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vbonduro/nutrisense/internal/config"
	"github.com/vbonduro/nutrisense/internal/llm/gemini"
)

func main() {
	cfg := config.Load()
	if cfg.GoogleAPIKey == "" {
		log.Fatal("GOOGLE_API_KEY is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, err := gemini.NewGenerator(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	defer func() { _ = g.Close() }()

	models, err := g.ListModels(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	for _, m := range models {
		if m.SupportsGenerate() {
			fmt.Fprintf(os.Stdout, "%s\t%s\n", m.Name, m.DisplayName)
		}
	}
}
