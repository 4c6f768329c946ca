// Package generation turns a question and retrieved chunks into an answer.
package generation

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

const promptTemplate = `You are a helpful assistant answering questions about the user's documents.
Answer strictly from the context below. If the context does not contain the
answer, say that you do not know.

Context:
%s

Question: %s
Answer:`

// BuildPrompt renders the grounding prompt sent to remote models.
func BuildPrompt(question string, contexts []domain.SearchResult) string {
	var b strings.Builder
	for i, c := range contexts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strings.TrimSpace(c.Chunk.Text))
	}
	return fmt.Sprintf(promptTemplate, b.String(), strings.TrimSpace(question))
}
