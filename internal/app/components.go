package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/genai"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/gemini"
	"docqa/internal/embedding/openai"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/generation"
	gengemini "docqa/internal/generation/gemini"
	genopenai "docqa/internal/generation/openai"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

// extractiveSentences is how many sentences the local generator quotes.
const extractiveSentences = 2

// genaiClients shares one Gemini client per API key environment variable.
type genaiClients map[string]*genai.Client

func (c genaiClients) get(ctx context.Context, apiKeyEnv string) (*genai.Client, error) {
	if client, ok := c[apiKeyEnv]; ok {
		return client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv(apiKeyEnv),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	c[apiKeyEnv] = client
	return client, nil
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	case "token":
		var tok chunker.Tokenizer = chunker.WordTokenizer{}
		if cfg.Tokenizer != "words" {
			bpe, err := chunker.NewBPETokenizer(cfg.Tokenizer)
			if err != nil {
				return nil, err
			}
			tok = bpe
		}
		return chunker.NewTokenChunker(tok, cfg.ChunkSize, cfg.ChunkOverlap), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func newEmbedder(ctx context.Context, cfg config.EmbedderConfig, clients genaiClients) (domain.Embedder, error) {
	switch cfg.Type {
	case "local":
		return tfidf.NewEmbedder(), nil
	case "gemini":
		client, err := clients.get(ctx, cfg.Gemini.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		return gemini.NewEmbedder(client, cfg.Gemini.Model), nil
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newGenerator(ctx context.Context, cfg config.GeneratorConfig, clients genaiClients) (domain.Generator, error) {
	switch cfg.Type {
	case "extractive":
		return generation.NewExtractive(extractiveSentences), nil
	case "gemini":
		client, err := clients.get(ctx, cfg.Gemini.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		return gengemini.NewGenerator(client, cfg.Gemini.Model, cfg.Temperature), nil
	case "openai":
		g, err := genopenai.NewGenerator(genopenai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}

// newStore returns the vector store and, for remote stores, its closer.
func newStore(cfg config.VectorStoreConfig) (domain.VectorStore, io.Closer, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil, nil
	case "qdrant":
		st, err := qdrant.NewStorage(qdrant.Config{
			Addr:       cfg.Qdrant.Addr,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func newSummarizer(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "frequency":
		return summarizer.NewFrequencySummarizer(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}
