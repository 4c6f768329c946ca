// Package index turns a document corpus into a searchable vector index.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
	"docqa/internal/textutil"
)

// ErrEmptyCorpus is returned when the documents produce no chunks.
var ErrEmptyCorpus = errors.New("documents produced no chunks")

// embedConcurrency bounds parallel calls to remote embedding APIs.
const embedConcurrency = 4

// Index is a built, read-only retrieval index.
type Index struct {
	embedder  domain.Embedder
	store     domain.VectorStore
	chunks    []domain.Chunk
	documents int
	summary   string
}

// Documents returns how many documents were indexed.
func (ix *Index) Documents() int { return ix.documents }

// Chunks returns how many chunks were indexed.
func (ix *Index) Chunks() int { return len(ix.chunks) }

// Summary returns a short extractive summary of the corpus.
func (ix *Index) Summary() string { return ix.summary }

// Retrieve returns the topK chunks most relevant to query. When the query
// embedding is all zeros or every match scores zero, chunks are ranked by
// word overlap instead.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if isZero(vec) {
		return ix.lexicalSearch(query, topK), nil
	}
	res, err := ix.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	for _, r := range res {
		if r.Score > 1e-9 {
			return res, nil
		}
	}
	return ix.lexicalSearch(query, topK), nil
}

func (ix *Index) lexicalSearch(query string, topK int) []domain.SearchResult {
	qset := textutil.TokenSet(query)
	out := make([]domain.SearchResult, len(ix.chunks))
	for i, ch := range ix.chunks {
		out[i] = domain.SearchResult{Chunk: ch, Score: textutil.Ochiai(qset, ch.Text)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK <= 0 {
		topK = 5
	}
	if topK < len(out) {
		out = out[:topK]
	}
	return out
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// build chunks, embeds and stores the documents.
func build(ctx context.Context, documents []domain.Document, c Components, logger *zap.Logger) (*Index, error) {
	var chunks []domain.Chunk
	var corpus strings.Builder
	for _, d := range documents {
		dc, err := c.Chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunking %s: %w", d.Path, err)
		}
		chunks = append(chunks, dc...)
		corpus.WriteString(d.Content)
		corpus.WriteString("\n")
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	if err := c.Embedder.Prepare(texts); err != nil {
		return nil, fmt.Errorf("preparing %s embedder: %w", c.Embedder.Name(), err)
	}

	vectors, err := embedAll(ctx, c.Embedder, texts)
	if err != nil {
		return nil, err
	}
	if err := c.Store.Init(ctx, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("initializing vector store: %w", err)
	}
	if err := c.Store.Upsert(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("storing vectors: %w", err)
	}

	ix := &Index{embedder: c.Embedder, store: c.Store, chunks: chunks, documents: len(documents)}
	if c.Summarizer != nil {
		summary, err := c.Summarizer.Summarize(corpus.String(), c.SummarySentences)
		if err != nil {
			return nil, fmt.Errorf("summarizing corpus: %w", err)
		}
		ix.summary = summary
	}
	logger.Info("index built",
		zap.Int("documents", len(documents)),
		zap.Int("chunks", len(chunks)),
		zap.String("embedder", c.Embedder.Name()),
		zap.Int("dimension", len(vectors[0])),
	)
	return ix, nil
}

func embedAll(ctx context.Context, e domain.Embedder, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			v, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
