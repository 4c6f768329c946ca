// Package httpapi exposes chat sessions over HTTP for browser clients.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/session"
)

const maxMessageBodySize = 64 << 10 // 64KB

type MessageRequest struct {
	Content string `json:"content"`
}

type WarningResponse struct {
	Attempt     int     `json:"attempt"`
	WaitSeconds float64 `json:"wait_seconds"`
	Message     string  `json:"message"`
}

type MessageResponse struct {
	Role      domain.Role       `json:"role"`
	Content   string            `json:"content"`
	Attempts  int               `json:"attempts"`
	Exhausted bool              `json:"exhausted"`
	Warnings  []WarningResponse `json:"warnings"`
}

type Deps struct {
	Sessions *session.Store
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewHandler returns the chat API router.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession(deps))
		r.Post("/{id}/messages", handlePostMessage(deps))
		r.Get("/{id}/messages", handleListMessages(deps))
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := deps.Sessions.Create()
		deps.Logger.Info("session created", zap.String("session_id", s.ID))
		writeJSON(w, http.StatusCreated, map[string]string{"id": s.ID})
	}
}

func handlePostMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxMessageBodySize)
		defer r.Body.Close()

		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		reply, err := s.Ask(r.Context(), req.Content, nil)
		if errors.Is(err, session.ErrEmptyQuestion) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}
		if err != nil {
			deps.Logger.Error("ask failed", zap.String("session_id", s.ID), zap.Error(err))
			httpError(w, http.StatusInternalServerError, "server_error", "could not answer the question")
			return
		}

		warnings := make([]WarningResponse, len(reply.Warnings))
		for i, wn := range reply.Warnings {
			warnings[i] = WarningResponse{
				Attempt:     wn.Attempt + 1,
				WaitSeconds: wn.Wait.Seconds(),
				Message:     fmt.Sprintf("Rate limited. Retrying in %s...", wn.Wait),
			}
		}
		writeJSON(w, http.StatusOK, MessageResponse{
			Role:      reply.Message.Role,
			Content:   reply.Message.Content,
			Attempts:  reply.Response.Attempts,
			Exhausted: reply.Response.Exhausted,
			Warnings:  warnings,
		})
	}
}

func handleListMessages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": s.Transcript()})
	}
}

func lookupSession(w http.ResponseWriter, r *http.Request, deps Deps) (*session.Session, bool) {
	s, err := deps.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, http.StatusNotFound, "not_found_error", "session not found")
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
