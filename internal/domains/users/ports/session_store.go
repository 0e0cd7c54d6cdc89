package ports

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned for unknown or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore abstracts bearer token persistence.
type SessionStore interface {
	Save(ctx context.Context, token string, userID int64) error
	Lookup(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}

// NoopSessionStore accepts tokens but never resolves them.
var NoopSessionStore SessionStore = noopSessionStore{}

type noopSessionStore struct{}

func (noopSessionStore) Save(context.Context, string, int64) error { return nil }
func (noopSessionStore) Lookup(context.Context, string) (int64, error) {
	return 0, ErrSessionNotFound
}
func (noopSessionStore) Delete(context.Context, string) error { return nil }
