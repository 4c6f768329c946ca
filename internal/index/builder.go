package index

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"docqa/internal/domain"
)

// DocumentSource yields the corpus to index.
type DocumentSource interface {
	Load() ([]domain.Document, error)
}

// Documents adapts a fixed slice into a DocumentSource.
type Documents []domain.Document

func (d Documents) Load() ([]domain.Document, error) { return d, nil }

// Components are the collaborators an index is built from.
type Components struct {
	Source           DocumentSource
	Chunker          domain.Chunker
	Embedder         domain.Embedder
	Store            domain.VectorStore
	Summarizer       domain.Summarizer
	SummarySentences int
}

// Builder builds the index at most once per process. Later calls to Build
// return the first result, including its error.
type Builder struct {
	components Components
	logger     *zap.Logger

	once   sync.Once
	builds atomic.Int32
	index  *Index
	err    error
}

// NewBuilder validates components and returns a builder for them.
func NewBuilder(c Components, logger *zap.Logger) (*Builder, error) {
	switch {
	case c.Source == nil:
		return nil, errors.New("index: document source is required")
	case c.Chunker == nil:
		return nil, errors.New("index: chunker is required")
	case c.Embedder == nil:
		return nil, errors.New("index: embedder is required")
	case c.Store == nil:
		return nil, errors.New("index: vector store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{components: c, logger: logger}, nil
}

// Build loads, chunks and embeds the corpus on the first call. Concurrent
// callers block until that build finishes and then share its result.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	b.once.Do(func() {
		b.builds.Add(1)
		docs, err := b.components.Source.Load()
		if err != nil {
			b.err = err
			return
		}
		b.index, b.err = build(ctx, docs, b.components, b.logger)
	})
	return b.index, b.err
}

// Builds reports how many times the corpus was actually indexed.
func (b *Builder) Builds() int { return int(b.builds.Load()) }
