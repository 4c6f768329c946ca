// Package engine answers questions over a built index.
package engine

import (
	"context"
	"errors"
	"fmt"

	"docqa/internal/domain"
)

// DefaultTopK is how many chunks are handed to the generator by default.
const DefaultTopK = 2

// Retriever finds the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// QueryEngine couples retrieval with answer generation.
type QueryEngine struct {
	retriever Retriever
	generator domain.Generator
	topK      int
}

// New creates a query engine over the index. A non-positive topK selects
// DefaultTopK.
func New(retriever Retriever, generator domain.Generator, topK int) (*QueryEngine, error) {
	if retriever == nil {
		return nil, errors.New("engine: retriever is required")
	}
	if generator == nil {
		return nil, errors.New("engine: generator is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QueryEngine{retriever: retriever, generator: generator, topK: topK}, nil
}

// Query retrieves context for question and asks the generator for an answer.
// Generator errors, including quota and rate limiting, are returned as is.
func (e *QueryEngine) Query(ctx context.Context, question string) (string, error) {
	contexts, err := e.retriever.Retrieve(ctx, question, e.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	answer, err := e.generator.Generate(ctx, question, contexts)
	if err != nil {
		return "", fmt.Errorf("generating answer with %s: %w", e.generator.Name(), err)
	}
	return answer, nil
}
