package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/resilient"
	"docqa/internal/session"
)

type scriptedQuerier struct {
	failures int
	calls    int
}

func (q *scriptedQuerier) Query(_ context.Context, question string) (string, error) {
	q.calls++
	if q.calls <= q.failures {
		return "", errors.New("quota")
	}
	return "echo: " + question, nil
}

func newTestServer(t *testing.T, q *scriptedQuerier) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := resilient.NewMetrics(reg)
	store := session.NewStore(func() session.Asker {
		return resilient.New(q, resilient.DefaultPolicy(),
			resilient.WithSleeper(func(time.Duration) {}), resilient.WithMetrics(metrics))
	})
	srv := httptest.NewServer(NewHandler(Deps{Sessions: store, Gatherer: reg}))
	t.Cleanup(srv.Close)
	return srv
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

func postMessage(t *testing.T, srv *httptest.Server, id, content string) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(MessageRequest{Content: content})
	resp, err := http.Post(srv.URL+"/v1/sessions/"+id+"/messages", "application/json", strings.NewReader(string(payload)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &scriptedQuerier{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostMessage_Answers(t *testing.T) {
	srv := newTestServer(t, &scriptedQuerier{failures: 1})
	id := createSession(t, srv)

	resp := postMessage(t, srv, id, "refunds?")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "assistant", string(body.Role))
	assert.Equal(t, "echo: refunds?", body.Content)
	assert.Equal(t, 2, body.Attempts)
	assert.False(t, body.Exhausted)
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, 1, body.Warnings[0].Attempt)
	assert.Equal(t, 1.0, body.Warnings[0].WaitSeconds)
}

func TestPostMessage_Exhausted(t *testing.T) {
	srv := newTestServer(t, &scriptedQuerier{failures: 10})
	id := createSession(t, srv)

	resp := postMessage(t, srv, id, "refunds?")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Exhausted)
	assert.Equal(t, resilient.ExhaustedAnswer, body.Content)
	assert.Len(t, body.Warnings, 5)
}

func TestPostMessage_EmptyContentIsBadRequest(t *testing.T) {
	q := &scriptedQuerier{}
	srv := newTestServer(t, q)
	id := createSession(t, srv)

	resp := postMessage(t, srv, id, "   ")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, q.calls)
}

func TestPostMessage_UnknownSession(t *testing.T) {
	srv := newTestServer(t, &scriptedQuerier{})
	resp := postMessage(t, srv, "nope", "hi")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListMessages(t *testing.T) {
	srv := newTestServer(t, &scriptedQuerier{})
	id := createSession(t, srv)
	postMessage(t, srv, id, "first")

	resp, err := http.Get(srv.URL + "/v1/sessions/" + id + "/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "user", body.Messages[0].Role)
	assert.Equal(t, "echo: first", body.Messages[1].Content)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &scriptedQuerier{})
	id := createSession(t, srv)
	postMessage(t, srv, id, "hello")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), `docqa_query_attempts_total{outcome="success"} 1`)
}
