package gemini

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func writeEmbedding(w http.ResponseWriter, values []float32) {
	w.Header().Set("Content-Type", "application/json")
	// single and batch response shapes
	json.NewEncoder(w).Encode(map[string]any{
		"embedding":  map[string]any{"values": values},
		"embeddings": []map[string]any{{"values": values}},
	})
}

func writeAPIError(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": "slow down", "status": status},
	})
}

func newTestEmbedder(t *testing.T, h http.HandlerFunc) *Embedder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	return NewEmbedder(client, "")
}

func TestEmbed_NormalizesAndRecordsDimension(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		writeEmbedding(w, []float32{3, 4})
	})
	assert.Equal(t, "gemini", e.Name())
	assert.Zero(t, e.Dimension())

	v, err := e.Embed(context.Background(), "refunds")
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, math.Hypot(v[0], v[1]), 1e-9)
	assert.Equal(t, 2, e.Dimension())
}

func TestEmbed_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeAPIError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED")
			return
		}
		writeEmbedding(w, []float32{1, 0})
	})
	var sleeps []time.Duration
	e.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	v, err := e.Embed(context.Background(), "refunds")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, v)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, sleeps)
}

func TestEmbed_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED")
	})
	e.sleep = func(time.Duration) {}

	_, err := e.Embed(context.Background(), "refunds")
	var apiErr genai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Code)
	assert.EqualValues(t, e.maxRetries+1, calls.Load())
}

func TestEmbed_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusBadRequest, "INVALID_ARGUMENT")
	})
	e.sleep = func(time.Duration) { t.Fatal("unexpected retry") }

	_, err := e.Embed(context.Background(), "refunds")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRetryDelay_Capped(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(1))
	assert.Equal(t, 5*time.Second, retryDelay(10))
	assert.Equal(t, 5*time.Second, retryDelay(100))
}
