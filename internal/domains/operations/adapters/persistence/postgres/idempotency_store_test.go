package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	"github.com/Apurer/book-distribution-api/internal/platform/dbtest"
)

func TestIdempotencyStore_SQLite(t *testing.T) {
	store := NewIdempotencyStore(dbtest.SQLite(t))
	ctx := context.Background()

	missing, err := store.Get(ctx, "2:abc")
	require.NoError(t, err)
	assert.Nil(t, missing)

	saved, err := store.Save(ctx, ports.IdempotencyRecord{Key: "2:abc", RequestHash: "h1", OperationID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), saved.OperationID)

	again, err := store.Save(ctx, ports.IdempotencyRecord{Key: "2:abc", RequestHash: "h1", OperationID: 7})
	require.NoError(t, err)
	assert.Equal(t, "h1", again.RequestHash)

	existing, err := store.Save(ctx, ports.IdempotencyRecord{Key: "2:abc", RequestHash: "h2", OperationID: 8})
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
	assert.Equal(t, int64(7), existing.OperationID)

	loaded, err := store.Get(ctx, "2:abc")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(7), loaded.OperationID)
}

func TestIdempotencyStore_NotConfigured(t *testing.T) {
	_, err := NewIdempotencyStore(nil).Get(context.Background(), "k")
	assert.Error(t, err)
}
