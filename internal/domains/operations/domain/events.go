package domain

import "time"

// EventType names a committed ledger change.
type EventType string

const (
	EventOrderSubmitted EventType = "operation.order.submitted"
	EventOrderAdvanced  EventType = "operation.order.advanced"
	EventOrderCancelled EventType = "operation.order.cancelled"
	EventReportRecorded EventType = "operation.report.recorded"
	EventReportDeleted  EventType = "operation.report.deleted"
)

// Event is emitted after a mutation commits.
type Event struct {
	Type        EventType
	OperationID int64
	CustomerID  int64
	Status      Status
	Items       []OperationItem
	OccurredAt  time.Time
}

// NewEvent captures the current state of op.
func NewEvent(t EventType, op *Operation, at time.Time) Event {
	return Event{
		Type:        t,
		OperationID: op.ID,
		CustomerID:  op.CustomerID,
		Status:      op.Status,
		Items:       append([]OperationItem(nil), op.Items...),
		OccurredAt:  at,
	}
}
