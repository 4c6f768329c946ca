package generation

import (
	"context"
	"strings"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/textutil"
)

// NoAnswer is returned by the extractive generator when nothing in the
// retrieved context shares a word with the question.
const NoAnswer = "I could not find an answer in the documents."

// Extractive answers with the retrieved sentences that overlap the question
// most. It runs locally and never fails, which makes it the generator of
// choice for offline use and tests.
type Extractive struct {
	maxSentences int
}

// NewExtractive returns a generator quoting up to maxSentences sentences.
func NewExtractive(maxSentences int) *Extractive {
	if maxSentences <= 0 {
		maxSentences = 1
	}
	return &Extractive{maxSentences: maxSentences}
}

func (e *Extractive) Name() string { return "extractive" }

func (e *Extractive) Generate(_ context.Context, question string, contexts []domain.SearchResult) (string, error) {
	qTokens := textutil.TokenSet(question)
	if len(qTokens) == 0 {
		return NoAnswer, nil
	}
	type candidate struct {
		text  string
		score int
	}
	var best []candidate
	seen := map[string]struct{}{}
	for _, c := range contexts {
		for _, sent := range chunker.SplitSentences(c.Chunk.Text) {
			if _, dup := seen[sent]; dup {
				continue
			}
			seen[sent] = struct{}{}
			score := textutil.Overlap(qTokens, sent)
			if score == 0 {
				continue
			}
			// insertion keeps retrieval order among equal scores
			i := len(best)
			for i > 0 && best[i-1].score < score {
				i--
			}
			best = append(best, candidate{})
			copy(best[i+1:], best[i:])
			best[i] = candidate{text: sent, score: score}
		}
	}
	if len(best) == 0 {
		return NoAnswer, nil
	}
	best = best[:min(e.maxSentences, len(best))]
	out := make([]string, len(best))
	for i, c := range best {
		out[i] = c.text
	}
	return strings.Join(out, " "), nil
}
