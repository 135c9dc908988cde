package session

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	sessions   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl}
}

func (s *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	val, ok := s.sessions.Load(token)
	if !ok {
		return nil, nil
	}

	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		s.sessions.Delete(token)
		return nil, nil
	}
	return entry.session, nil
}

func (s *MemoryStore) Set(ctx context.Context, session *Session) error {
	s.sessions.Store(session.Token, &memoryEntry{
		session:   session,
		expiresAt: time.Now().Add(s.ttl),
	})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.sessions.Delete(token)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (s *MemoryStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := s.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	s.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
