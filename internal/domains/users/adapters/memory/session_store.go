package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory SessionStore implementation.
type SessionStore struct {
	ttl     time.Duration
	now     func() time.Time
	session sync.Map
}

type sessionEntry struct {
	userID    int64
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{ttl: ttl, now: time.Now}
}

func (s *SessionStore) Save(_ context.Context, token string, userID int64) error {
	s.session.Store(token, sessionEntry{userID: userID, expiresAt: s.now().Add(s.ttl)})
	return nil
}

func (s *SessionStore) Lookup(_ context.Context, token string) (int64, error) {
	value, ok := s.session.Load(token)
	if !ok {
		return 0, ports.ErrSessionNotFound
	}
	entry := value.(sessionEntry)
	if !s.now().Before(entry.expiresAt) {
		s.session.Delete(token)
		return 0, ports.ErrSessionNotFound
	}
	return entry.userID, nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.session.Delete(token)
	return nil
}
