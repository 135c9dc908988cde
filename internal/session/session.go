package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session ties an opaque cookie token to an authenticated account.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// New mints a session for the given account.
func New(username string) *Session {
	return &Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now(),
	}
}

// Store keeps sessions and login rate-limit counters. Get returns (nil, nil)
// for an unknown or expired token.
type Store interface {
	Get(ctx context.Context, token string) (*Session, error)
	Set(ctx context.Context, session *Session) error
	Delete(ctx context.Context, token string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
