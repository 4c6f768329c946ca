package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// SplitSentences breaks text into trimmed sentences. Text without sentence
// punctuation is returned as a single sentence; blank text yields nil.
func SplitSentences(text string) []string {
	raw := sentenceRe.FindAllString(text, -1)
	if len(raw) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	// trailing text after the last terminator
	consumed := sentenceRe.FindAllStringIndex(text, -1)
	if tail := strings.TrimSpace(text[consumed[len(consumed)-1][1]:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// SentenceChunker groups a fixed number of sentences per chunk, repeating
// overlapSentences sentences between neighbours.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{sentencesPerChunk: sentencesPerChunk, overlapSentences: overlapSentences}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	sentences := SplitSentences(document.Content)
	if len(sentences) == 0 {
		return nil, nil
	}
	return window(document, sentences, c.sentencesPerChunk, c.overlapSentences, joinSentences), nil
}

func joinSentences(s []string) string { return strings.Join(s, " ") }

// window slides a size-wide window with the given overlap over units and
// joins each window into a chunk.
func window(document domain.Document, units []string, size, overlap int, join func([]string) string) []domain.Chunk {
	var chunks []domain.Chunk
	for i, idx := 0, 0; i < len(units); idx++ {
		end := min(i+size, len(units))
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       join(units[i:end]),
			Index:      idx,
		})
		if end == len(units) {
			break
		}
		i = end - overlap
	}
	return chunks
}
