package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/support-portal/internal/domain"
)

// ErrSessionNotFound indicates the session id has no live record.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps live session records server-side.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

const sessionKeyPrefix = "session:"

// redisSessionStore holds sessions in Redis with a TTL.
type redisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore builds a Redis-backed store.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Save(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, session.ID)
	}
	return s.client.Set(ctx, sessionKeyPrefix+session.ID, raw, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

// memorySessionStore is the fallback when Redis is unreachable. Sessions
// then live only as long as the process.
type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemorySessionStore builds an in-process store.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[string]domain.Session)}
}

func (s *memorySessionStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *memorySessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		_ = s.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *memorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
