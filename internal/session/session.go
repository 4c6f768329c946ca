// Package session keeps one user's chat transcript and routes their
// questions through the resilient wrapper.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"docqa/internal/domain"
	"docqa/internal/resilient"
)

// ErrEmptyQuestion is returned for blank input. Such input never reaches
// the query engine.
var ErrEmptyQuestion = errors.New("please enter a question")

// Asker runs a question through the retry policy.
type Asker interface {
	QueryWithWarnings(ctx context.Context, question string, warn resilient.WarnFunc) resilient.Response
}

// Reply is the assistant's answer to one question.
type Reply struct {
	Message  domain.Message
	Response resilient.Response
	Warnings []resilient.Warning
}

// Session is one conversation. Questions are answered one at a time; the
// transcript stays readable while an answer is pending.
type Session struct {
	ID        string
	CreatedAt time.Time

	asker Asker
	askMu sync.Mutex

	mu         sync.Mutex
	transcript []domain.Message
}

// New creates an empty session answering through asker.
func New(id string, asker Asker) *Session {
	return &Session{ID: id, CreatedAt: time.Now(), asker: asker}
}

// Ask validates question, records it, and records the answer or the
// exhausted sentinel. warn, if non-nil, is called for every failed attempt
// while Ask is still blocked.
func (s *Session) Ask(ctx context.Context, question string, warn resilient.WarnFunc) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}

	s.askMu.Lock()
	defer s.askMu.Unlock()

	s.appendMessage(domain.Message{Role: domain.RoleUser, Content: question})

	var warnings []resilient.Warning
	resp := s.asker.QueryWithWarnings(ctx, question, func(w resilient.Warning) {
		warnings = append(warnings, w)
		if warn != nil {
			warn(w)
		}
	})

	msg := domain.Message{Role: domain.RoleAssistant, Content: resp.Text()}
	s.appendMessage(msg)
	return Reply{Message: msg, Response: resp, Warnings: warnings}, nil
}

func (s *Session) appendMessage(msg domain.Message) {
	s.mu.Lock()
	s.transcript = append(s.transcript, msg)
	s.mu.Unlock()
}

// Transcript returns a copy of the messages so far, oldest first.
func (s *Session) Transcript() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}
