// Package events publishes committed ledger changes to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

const eventVersion = "1.0.0"

// Envelope is the wire format shared by every broker.
type Envelope struct {
	EventID       string  `json:"event_id"`
	EventType     string  `json:"event_type"`
	EventVersion  string  `json:"event_version"`
	Timestamp     string  `json:"timestamp"`
	CorrelationID string  `json:"correlation_id,omitempty"`
	Payload       Payload `json:"payload"`
}

// Payload is the operation snapshot carried by an event.
type Payload struct {
	OperationID int64         `json:"operation_id"`
	CustomerID  int64         `json:"customer_id"`
	Status      string        `json:"status"`
	Items       []domain.Line `json:"items"`
}

// NewEnvelope wraps a domain event. The correlation id is the active trace id, if any.
func NewEnvelope(ctx context.Context, event domain.Event) Envelope {
	items := make([]domain.Line, 0, len(event.Items))
	for _, item := range event.Items {
		items = append(items, domain.Line{BookID: item.BookID, Quantity: item.Quantity})
	}
	env := Envelope{
		EventID:      uuid.New().String(),
		EventType:    string(event.Type),
		EventVersion: eventVersion,
		Timestamp:    event.OccurredAt.UTC().Format(time.RFC3339),
		Payload: Payload{
			OperationID: event.OperationID,
			CustomerID:  event.CustomerID,
			Status:      string(event.Status),
			Items:       items,
		},
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.CorrelationID = sc.TraceID().String()
	}
	return env
}

func (e Envelope) marshal() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}
