package chunker

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"docqa/internal/domain"
)

// Tokenizer splits text into tokens and joins them back.
type Tokenizer interface {
	Tokens(text string) []string
	Join(tokens []string) string
}

// WordTokenizer treats whitespace-separated words as tokens.
type WordTokenizer struct{}

func (WordTokenizer) Tokens(text string) []string  { return strings.Fields(text) }
func (WordTokenizer) Join(tokens []string) string { return strings.Join(tokens, " ") }

// BPETokenizer counts tokens the way OpenAI-style models do.
type BPETokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewBPETokenizer loads the named tiktoken encoding, e.g. "cl100k_base".
func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encoding, err)
	}
	return &BPETokenizer{enc: enc}, nil
}

func (t *BPETokenizer) Tokens(text string) []string {
	ids := t.enc.Encode(text, nil, nil)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = t.enc.Decode([]int{id})
	}
	return out
}

func (t *BPETokenizer) Join(tokens []string) string {
	return strings.TrimSpace(strings.Join(tokens, ""))
}

// TokenChunker emits chunks of at most chunkSize tokens, repeating
// chunkOverlap tokens between neighbours.
type TokenChunker struct {
	tokenizer    Tokenizer
	chunkSize    int
	chunkOverlap int
}

func NewTokenChunker(tokenizer Tokenizer, chunkSize, chunkOverlap int) *TokenChunker {
	if tokenizer == nil {
		tokenizer = WordTokenizer{}
	}
	if chunkSize <= 0 {
		chunkSize = 256
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &TokenChunker{tokenizer: tokenizer, chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

func (c *TokenChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	tokens := c.tokenizer.Tokens(document.Content)
	if len(tokens) == 0 {
		return nil, nil
	}
	return window(document, tokens, c.chunkSize, c.chunkOverlap, c.tokenizer.Join), nil
}
