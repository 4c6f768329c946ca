package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when a remote provider is configured but its
// API key environment variable is empty.
var ErrMissingCredential = errors.New("missing API credential")

// MaxAttemptsLimit bounds retry.max_attempts; the last backoff is
// backoff_unit * 2^(MaxAttemptsLimit-1).
const MaxAttemptsLimit = 10

// GeminiConfig holds connection details for the Gemini API.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// OpenAIConfig holds connection details for an OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	Gemini *GeminiConfig `yaml:"gemini,omitempty"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type        string        `yaml:"type"`
	Temperature float32       `yaml:"temperature"`
	Gemini      *GeminiConfig `yaml:"gemini,omitempty"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	Tokenizer         string `yaml:"tokenizer"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Addr        string `yaml:"addr"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// DataConfig points at the document directory.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// RetrievalConfig tunes the query engine.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// RetryConfig controls the resilient query wrapper.
type RetryConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`
	PacingSecs      int `yaml:"pacing_secs"`
	BackoffUnitSecs int `yaml:"backoff_unit_secs"`
}

// Pacing returns the fixed delay before each attempt.
func (r RetryConfig) Pacing() time.Duration { return time.Duration(r.PacingSecs) * time.Second }

// BackoffUnit returns the base of the exponential backoff.
func (r RetryConfig) BackoffUnit() time.Duration {
	return time.Duration(r.BackoffUnitSecs) * time.Second
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// ServerConfig configures the HTTP chat API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Data        DataConfig        `yaml:"data"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Retry       RetryConfig       `yaml:"retry"`
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	// zero is a valid setting for these, so they are seeded rather than
	// defaulted after parsing
	cfg := AppConfig{
		Chunker: ChunkerConfig{ChunkOverlap: 20},
		Retry:   defaultRetry(),
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports configuration values that cannot be served.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "local", "gemini", "openai":
	default:
		return fmt.Errorf("unknown embedder: %q", c.Embedder.Type)
	}
	switch c.Generator.Type {
	case "gemini", "openai", "extractive":
	default:
		return fmt.Errorf("unknown generator: %q", c.Generator.Type)
	}
	switch c.Chunker.Type {
	case "sentence", "token":
	default:
		return fmt.Errorf("unknown chunker: %q", c.Chunker.Type)
	}
	switch c.VectorStore.Type {
	case "memory":
	case "qdrant":
		if c.VectorStore.Qdrant == nil || c.VectorStore.Qdrant.Addr == "" {
			return errors.New("qdrant config missing")
		}
	default:
		return fmt.Errorf("unknown vector store: %q", c.VectorStore.Type)
	}
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.Chunker.ChunkOverlap, c.Chunker.ChunkSize)
	}
	if c.Chunker.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.Chunker.ChunkOverlap)
	}
	if c.Retry.MaxAttempts <= 0 || c.Retry.MaxAttempts > MaxAttemptsLimit {
		return fmt.Errorf("retry max_attempts must be between 1 and %d, got %d", MaxAttemptsLimit, c.Retry.MaxAttempts)
	}
	if c.Retry.PacingSecs < 0 || c.Retry.BackoffUnitSecs < 0 {
		return fmt.Errorf("retry delays must not be negative, got pacing %d and backoff unit %d",
			c.Retry.PacingSecs, c.Retry.BackoffUnitSecs)
	}
	if c.Data.Dir == "" {
		return errors.New("data dir is required")
	}
	return nil
}

// RequiredCredentials lists the environment variables that must be set for the
// configured remote providers.
func (c *AppConfig) RequiredCredentials() []string {
	var envs []string
	add := func(name string) {
		for _, e := range envs {
			if e == name {
				return
			}
		}
		envs = append(envs, name)
	}
	switch c.Embedder.Type {
	case "gemini":
		add(c.Embedder.Gemini.APIKeyEnv)
	case "openai":
		add(c.Embedder.OpenAI.APIKeyEnv)
	}
	switch c.Generator.Type {
	case "gemini":
		add(c.Generator.Gemini.APIKeyEnv)
	case "openai":
		add(c.Generator.OpenAI.APIKeyEnv)
	}
	return envs
}

// RequireCredentials fails if any required credential is absent from the environment.
func (c *AppConfig) RequireCredentials() error {
	for _, env := range c.RequiredCredentials() {
		if os.Getenv(env) == "" {
			return fmt.Errorf("%w: %s not found in environment or .env file", ErrMissingCredential, env)
		}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

// Default returns the configuration of the reference deployment: local
// embeddings, Gemini generation, 256/20 token chunks over ./Data.
func Default() *AppConfig {
	cfg := &AppConfig{
		Data:        DataConfig{Dir: "Data"},
		Embedder:    EmbedderConfig{Type: "local"},
		Generator:   GeneratorConfig{Type: "gemini"},
		Chunker:     ChunkerConfig{Type: "token", ChunkSize: 256, ChunkOverlap: 20, Tokenizer: "words"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 3},
		Retrieval:   RetrievalConfig{TopK: 2},
		Retry:       defaultRetry(),
		Log:         LogConfig{Level: "info"},
		Server:      ServerConfig{Addr: "127.0.0.1:8501"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func defaultRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 5, PacingSecs: 4, BackoffUnitSecs: 1}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "Data"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "local"
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "gemini"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "token"
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 256
	}
	if cfg.Chunker.Tokenizer == "" {
		cfg.Chunker.Tokenizer = "words"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Collection == "" {
			q.Collection = "docqa"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 2
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8501"
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiConfig{}
		}
		geminiDefaults(cfg.Embedder.Gemini, "models/embedding-001")
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		openAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}
	if cfg.Generator.Type == "gemini" {
		if cfg.Generator.Gemini == nil {
			cfg.Generator.Gemini = &GeminiConfig{}
		}
		geminiDefaults(cfg.Generator.Gemini, "gemini-2.0-flash")
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIConfig{}
		}
		openAIDefaults(cfg.Generator.OpenAI, "gpt-4o-mini")
	}
}

func geminiDefaults(g *GeminiConfig, model string) {
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if g.Model == "" {
		g.Model = model
	}
}

func openAIDefaults(o *OpenAIConfig, model string) {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "OPENAI_API_KEY"
	}
	if o.Model == "" {
		o.Model = model
	}
}
