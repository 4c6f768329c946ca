package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown session ID.
var ErrNotFound = errors.New("session not found")

// Store indexes live sessions by ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newAsker func() Asker
}

// NewStore creates a store whose sessions each get their own Asker from newAsker.
func NewStore(newAsker func() Asker) *Store {
	return &Store{sessions: make(map[string]*Session), newAsker: newAsker}
}

// Create starts a session with a random ID.
func (st *Store) Create() *Session {
	s := New(uuid.NewString(), st.newAsker())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with the given ID.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
