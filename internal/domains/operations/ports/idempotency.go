package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict indicates the same key was used with a different payload or operation.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// IdempotencyRecord binds a customer-scoped Idempotency-Key to the order it created.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OperationID int64
	CreatedAt   time.Time
}

// IdempotencyStore remembers submitted keys so retried order submissions replay the first result.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save persists the record. A key already stored with the same hash and operation returns the stored
	// record; any other existing record is returned together with ErrIdempotencyConflict.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}
