package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func results(texts ...string) []domain.SearchResult {
	out := make([]domain.SearchResult, len(texts))
	for i, t := range texts {
		out[i] = domain.SearchResult{Chunk: domain.Chunk{Text: t}, Score: 1 - float64(i)/10}
	}
	return out
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  What is the refund policy? ", results("Refunds take 5 days.", " Shipping is free. "))
	assert.Contains(t, p, "[1] Refunds take 5 days.\n\n[2] Shipping is free.")
	assert.Contains(t, p, "Question: What is the refund policy?\nAnswer:")
}

func TestExtractive_PicksBestSentence(t *testing.T) {
	ctx := results(
		"Our store opens at nine. Refunds are processed within 5 business days.",
		"Shipping is free over $50.",
	)
	got, err := NewExtractive(1).Generate(context.Background(), "What is the refund policy?", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Refunds are processed within 5 business days.", got)
}

func TestExtractive_OrdersByOverlap(t *testing.T) {
	ctx := results("Shipping is free. Free shipping applies to refund orders.")
	got, err := NewExtractive(2).Generate(context.Background(), "free shipping refund", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Free shipping applies to refund orders. Shipping is free.", got)
}

func TestExtractive_NoOverlap(t *testing.T) {
	g := NewExtractive(1)
	got, err := g.Generate(context.Background(), "What about parking?", results("Refunds take 5 days."))
	require.NoError(t, err)
	assert.Equal(t, NoAnswer, got)

	got, err = g.Generate(context.Background(), "what is it?", results("Refunds take 5 days."))
	require.NoError(t, err)
	assert.Equal(t, NoAnswer, got)
	assert.Equal(t, "extractive", g.Name())
}
