package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok", 42))
	id, err := store.Lookup(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	now = now.Add(2 * time.Minute)
	_, err = store.Lookup(ctx, "tok")
	require.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore(0)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "tok", 1))
	require.NoError(t, store.Delete(ctx, "tok"))
	_, err := store.Lookup(ctx, "tok")
	require.ErrorIs(t, err, ports.ErrSessionNotFound)
}
