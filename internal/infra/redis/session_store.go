package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"relapitch/internal/app"
	"relapitch/internal/domain"
)

// SessionStore is a Redis-backed implementation of app.SessionRepository.
// Notes:
//   - It keeps a local in-memory map of live sessions so the per-user lock
//     and the in-process subscriber broadcast keep working.
//   - Redis holds the serialized session snapshot, so progress survives a
//     process restart and sessions expire after the configured TTL of
//     inactivity.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(ctx context.Context, userID string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		return session, nil
	}

	session, err := s.hydrate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = app.NewSession(userID)
	}
	s.sessions[userID] = session
	return session, nil
}

// hydrate loads a persisted snapshot, returning (nil, nil) on a clean miss.
func (s *SessionStore) hydrate(ctx context.Context, userID string) (*app.Session, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return app.RestoreSession(userID, state), nil
}

func (s *SessionStore) Get(_ context.Context, userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// Save persists the session snapshot and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, session *app.Session) error {
	raw, err := json.Marshal(session.State())
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID()), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(userID string) string {
	return "relapitch:session:" + userID
}
