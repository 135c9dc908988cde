package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverStore prefers the primary store (Redis) and falls back to the
// in-memory store when the primary errors. Sessions written during an
// outage live only in memory; users re-login at worst.
type FailoverStore struct {
	primary   Store
	fallback  Store
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

const recoveryInterval = time.Minute

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *FailoverStore) primaryUsable() bool {
	if !s.isDown.Load() {
		return true
	}
	// Retry the primary once per recovery interval
	last := time.Unix(0, s.lastCheck.Load())
	if time.Since(last) > recoveryInterval {
		s.lastCheck.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (s *FailoverStore) markDown(err error) {
	if !s.isDown.Swap(true) {
		s.logger.Error().Err(err).Msg("primary session store failed, falling back to memory")
	}
	s.lastCheck.Store(time.Now().UnixNano())
}

func (s *FailoverStore) Get(ctx context.Context, token string) (*Session, error) {
	if s.primaryUsable() {
		session, err := s.primary.Get(ctx, token)
		if err == nil {
			s.isDown.Store(false)
			return session, nil
		}
		s.markDown(err)
	}
	return s.fallback.Get(ctx, token)
}

func (s *FailoverStore) Set(ctx context.Context, session *Session) error {
	if s.primaryUsable() {
		err := s.primary.Set(ctx, session)
		if err == nil {
			s.isDown.Store(false)
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Set(ctx, session)
}

func (s *FailoverStore) Delete(ctx context.Context, token string) error {
	// Delete from both so a recovered primary cannot resurrect the session
	var primaryErr error
	if s.primaryUsable() {
		if primaryErr = s.primary.Delete(ctx, token); primaryErr != nil {
			s.markDown(primaryErr)
		}
	}
	return s.fallback.Delete(ctx, token)
}

func (s *FailoverStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if s.primaryUsable() {
		ok, err := s.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			s.isDown.Store(false)
			return ok, nil
		}
		s.markDown(err)
	}
	return s.fallback.CheckRateLimit(ctx, key, limit, window)
}
