package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"docqa/internal/domain"
	"docqa/internal/generation"
)

// Generator answers through the Gemini generateContent API.
type Generator struct {
	models      *genai.Models
	model       string
	temperature float32
}

// NewGenerator creates a generator using an existing genai client.
func NewGenerator(client *genai.Client, model string, temperature float32) *Generator {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Generator{models: client.Models, model: model, temperature: temperature}
}

func (g *Generator) Name() string { return "gemini" }

// Generate sends the grounding prompt and returns the model's text. Quota and
// rate-limit failures surface as errors for the caller to retry.
func (g *Generator) Generate(ctx context.Context, question string, contexts []domain.SearchResult) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model,
		genai.Text(generation.BuildPrompt(question, contexts)),
		&genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini generate: empty response")
	}
	return text, nil
}
