package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Refunds are processed within 5 business days. Contact us! Trailing words")
	assert.Equal(t, []string{
		"Refunds are processed within 5 business days.",
		"Contact us!",
		"Trailing words",
	}, got)

	assert.Equal(t, []string{"no punctuation"}, SplitSentences("  no punctuation  "))
	assert.Nil(t, SplitSentences("   \n "))
}

func TestSentenceChunker_Overlap(t *testing.T) {
	doc := domain.Document{ID: "doc", Content: "One. Two. Three. Four. Five."}
	c := NewSentenceChunker(2, 1)

	chunks, err := c.Chunk(doc)
	require.NoError(t, err)

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "doc", ch.DocumentID)
	}
	assert.Equal(t, []string{"One. Two.", "Two. Three.", "Three. Four.", "Four. Five."}, texts)
	assert.Equal(t, "doc:3", chunks[3].ChunkID)
}

func TestSentenceChunker_OverlapClamped(t *testing.T) {
	c := NewSentenceChunker(2, 5)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: "A. B. C."})
	require.NoError(t, err)
	assert.Len(t, chunks, 2, "overlap must stay below chunk size so the window advances")
}

func TestSentenceChunker_Empty(t *testing.T) {
	chunks, err := NewSentenceChunker(5, 1).Chunk(domain.Document{ID: "d", Content: "  "})
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestTokenChunker_SizeAndOverlap(t *testing.T) {
	words := make([]string, 10)
	for i := range words {
		words[i] = string(rune('a' + i))
	}
	doc := domain.Document{ID: "d", Content: strings.Join(words, " ")}
	c := NewTokenChunker(WordTokenizer{}, 4, 1)

	chunks, err := c.Chunk(doc)
	require.NoError(t, err)

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	assert.Equal(t, []string{"a b c d", "d e f g", "g h i j"}, texts)
}

func TestTokenChunker_ShortDocumentIsOneChunk(t *testing.T) {
	c := NewTokenChunker(nil, 256, 20)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: "Refunds are processed within 5 business days."})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Refunds are processed within 5 business days.", chunks[0].Text)
}

func TestTokenChunker_Empty(t *testing.T) {
	chunks, err := NewTokenChunker(WordTokenizer{}, 8, 2).Chunk(domain.Document{ID: "d"})
	require.NoError(t, err)
	assert.Nil(t, chunks)
}
