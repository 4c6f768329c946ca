package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/config"
	"docqa/internal/loader"
	"docqa/internal/session"
)

func localConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.txt"),
		[]byte("Refunds are processed within 5 business days. Shipping is free over $50."), 0o644))
	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Generator.Type = "extractive"
	return cfg
}

func TestNew_AnswersFromLocalCorpus(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(context.Background(), localConfig(t), nil,
		WithRegisterer(reg), WithSleeper(func(time.Duration) {}))
	require.NoError(t, err)
	defer a.Close()

	s := a.NewSession("cli")
	reply, err := s.Ask(context.Background(), "What is the refund policy?", nil)
	require.NoError(t, err)
	assert.Contains(t, reply.Message.Content, "5 business days")
	assert.False(t, reply.Response.Exhausted)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.Attempts.WithLabelValues("success")))
	assert.NotEmpty(t, a.Summary())
}

func TestNew_BuildsIndexOnce(t *testing.T) {
	a, err := New(context.Background(), localConfig(t), nil, WithSleeper(func(time.Duration) {}))
	require.NoError(t, err)

	first, err := a.Index(context.Background())
	require.NoError(t, err)
	a.NewSession("a")
	a.NewSession("b")
	second, err := a.Index(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, a.Builds())
}

func TestNew_SessionsShareIndex(t *testing.T) {
	a, err := New(context.Background(), localConfig(t), nil, WithSleeper(func(time.Duration) {}))
	require.NoError(t, err)

	store := session.NewStore(a.NewAsker)
	for range 3 {
		s := store.Create()
		_, err := s.Ask(context.Background(), "shipping cost?", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, a.Builds())
}

func TestNew_MissingCredentialIsFatalBeforeBuild(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	cfg := config.Default()
	cfg.Data.Dir = filepath.Join(t.TempDir(), "does-not-exist")

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestNew_MissingDataDirIsFatal(t *testing.T) {
	cfg := localConfig(t)
	cfg.Data.Dir = filepath.Join(t.TempDir(), "nope")

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNew_EmptyDataDirIsFatal(t *testing.T) {
	cfg := localConfig(t)
	cfg.Data.Dir = t.TempDir()

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, loader.ErrNoDocuments)
}

func TestPolicy_FromConfig(t *testing.T) {
	cfg := localConfig(t)
	cfg.Retry.MaxAttempts = 3
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	p := a.Policy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 4*time.Second, p.Pacing)
	assert.Equal(t, time.Second, p.BackoffUnit)
}
