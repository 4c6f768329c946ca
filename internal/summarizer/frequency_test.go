package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_PicksFrequentSentencesInOrder(t *testing.T) {
	text := "Refunds are processed quickly. The office cat is named Tom. " +
		"Refunds require a receipt. Refunds go to the original card."

	got, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.NotContains(t, got, "cat")
	assert.Contains(t, got, "Refunds")
}

func TestSummarize_ShortText(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("Only one sentence.", 3)
	require.NoError(t, err)
	assert.Equal(t, "Only one sentence.", got)

	got, err = NewFrequencySummarizer().Summarize("   ", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
