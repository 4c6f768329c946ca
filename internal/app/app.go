// Package app wires configuration into a ready-to-query application: the
// index is built once at startup and shared by every chat session.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/engine"
	"docqa/internal/index"
	"docqa/internal/loader"
	"docqa/internal/resilient"
	"docqa/internal/session"
)

// App owns the built index and hands out sessions. Construct it once.
type App struct {
	cfg       *config.AppConfig
	logger    *zap.Logger
	builder   *index.Builder
	index     *index.Index
	generator domain.Generator
	metrics   *resilient.Metrics
	sleep     resilient.Sleeper
	closers   []io.Closer
}

// Option customizes an App.
type Option func(*App)

// WithRegisterer registers the query metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) { a.metrics = resilient.NewMetrics(reg) }
}

// WithSleeper replaces time.Sleep in every session's retry loop.
func WithSleeper(s resilient.Sleeper) Option {
	return func(a *App) { a.sleep = s }
}

// New validates cfg, checks credentials and builds the index. Any failure is
// fatal to startup.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	clients := genaiClients{}
	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(ctx, cfg.Embedder, clients)
	if err != nil {
		return nil, err
	}
	store, closer, err := newStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	sum, err := newSummarizer(cfg.Summarizer)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.generator, err = newGenerator(ctx, cfg.Generator, clients)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.builder, err = index.NewBuilder(index.Components{
		Source:           loader.NewDirectoryLoader(cfg.Data.Dir, logger),
		Chunker:          ch,
		Embedder:         emb,
		Store:            store,
		Summarizer:       sum,
		SummarySentences: cfg.Summarizer.MaxSentences,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.index, err = a.Index(ctx); err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("application ready",
		zap.String("data_dir", cfg.Data.Dir),
		zap.String("embedder", cfg.Embedder.Type),
		zap.String("generator", a.generator.Name()),
		zap.String("vector_store", cfg.VectorStore.Type),
	)
	return a, nil
}

// Index returns the application's index, building it on first use.
func (a *App) Index(ctx context.Context) (*index.Index, error) {
	ix, err := a.builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building index from %s: %w", a.cfg.Data.Dir, err)
	}
	return ix, nil
}

// Builds reports how many times the index was actually built.
func (a *App) Builds() int { return a.builder.Builds() }

// Summary is the corpus summary shown to users.
func (a *App) Summary() string { return a.index.Summary() }

// Policy is the retry policy every session uses.
func (a *App) Policy() resilient.Policy {
	r := a.cfg.Retry
	return resilient.Policy{MaxAttempts: r.MaxAttempts, Pacing: r.Pacing(), BackoffUnit: r.BackoffUnit()}
}

// NewAsker creates the query engine and retry wrapper for one session.
func (a *App) NewAsker() session.Asker {
	eng, err := engine.New(a.index, a.generator, a.cfg.Retrieval.TopK)
	if err != nil {
		// index and generator are set once New succeeds
		panic(err)
	}
	opts := []resilient.Option{resilient.WithLogger(a.logger), resilient.WithMetrics(a.metrics)}
	if a.sleep != nil {
		opts = append(opts, resilient.WithSleeper(a.sleep))
	}
	return resilient.New(eng, a.Policy(), opts...)
}

// NewSession starts a standalone session with its own engine.
func (a *App) NewSession(id string) *session.Session {
	return session.New(id, a.NewAsker())
}

// Close releases remote connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
