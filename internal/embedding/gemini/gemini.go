package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"google.golang.org/genai"

	"docqa/internal/embedding"
)

// Embedder produces embeddings through the Gemini API.
type Embedder struct {
	models    *genai.Models
	model     string
	dimension atomic.Int64

	maxRetries int
	sleep      func(time.Duration)
}

// NewEmbedder creates an embedder using an existing genai client.
func NewEmbedder(client *genai.Client, model string) *Embedder {
	if model == "" {
		model = "models/embedding-001"
	}
	return &Embedder{models: client.Models, model: model, maxRetries: 5, sleep: time.Sleep}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini" }

// Prepare is a no-op for remote embeddings.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality seen on the first embed.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed returns a unit-length embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var (
		resp *genai.EmbedContentResponse
		err  error
	)
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		resp, err = e.models.EmbedContent(ctx, e.model, genai.Text(text), nil)
		if err == nil || !retryable(err) || attempt == e.maxRetries {
			break
		}
		e.sleep(retryDelay(attempt))
	}
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini embed: no embedding returned")
	}
	v := embedding.Normalize(resp.Embeddings[0].Values)
	e.dimension.CompareAndSwap(0, int64(len(v)))
	return v, nil
}

func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return false
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// exponential backoff capped at 5s
	d := 200 * time.Millisecond << min(attempt, 5)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
