package memory

import (
	"context"
	"sync"

	"relapitch/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions live for the process lifetime; Save is a no-op because the live
// session object is already the source of truth.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(_ context.Context, userID string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		return session, nil
	}
	session := app.NewSession(userID)
	s.sessions[userID] = session
	return session, nil
}

func (s *SessionStore) Get(_ context.Context, userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *SessionStore) Save(context.Context, *app.Session) error {
	return nil
}
