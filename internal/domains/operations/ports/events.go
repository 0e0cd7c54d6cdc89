package ports

import (
	"context"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

// EventPublisher forwards committed ledger changes to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// NoopPublisher drops events.
var NoopPublisher EventPublisher = noopPublisher{}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }
