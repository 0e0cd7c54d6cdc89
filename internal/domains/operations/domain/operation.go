package domain

import (
	"time"
)

// Type distinguishes delivery orders from sales reports.
type Type string

const (
	TypeOrder  Type = "order"
	TypeReport Type = "report"
)

// Status enumerates operation lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusRecorded  Status = "recorded"
)

// ActiveOrderStatuses are the order states that count as an outstanding delivery request.
var ActiveOrderStatuses = []Status{StatusPending, StatusApproved}

// GateStatuses is the blocking set consulted when looking up a customer's last order.
var GateStatuses = []Status{StatusPending, StatusDelivered}

// OperationItem is a signed quantity delta against one book.
type OperationItem struct {
	ID          int64
	OperationID int64
	BookID      int64
	Quantity    int64
}

// Operation is a ledger entry owned by a customer.
type Operation struct {
	ID         int64
	CustomerID int64
	Type       Type
	Status     Status
	CreatedAt  time.Time
	Notes      string
	Items      []OperationItem
}

// NewOrder builds a pending order from positive requested quantities.
func NewOrder(customerID int64, lines []Line, now time.Time) *Operation {
	op := &Operation{CustomerID: customerID, Type: TypeOrder, Status: StatusPending, CreatedAt: now}
	for _, line := range lines {
		op.Items = append(op.Items, OperationItem{BookID: line.BookID, Quantity: line.Quantity})
	}
	return op
}

// NewReport builds a recorded report, storing sold quantities as negative deltas.
func NewReport(customerID int64, lines []Line, now time.Time) *Operation {
	op := &Operation{CustomerID: customerID, Type: TypeReport, Status: StatusRecorded, CreatedAt: now}
	for _, line := range lines {
		op.Items = append(op.Items, OperationItem{BookID: line.BookID, Quantity: -line.Quantity})
	}
	return op
}

// Date is the calendar date of creation.
func (o *Operation) Date() time.Time {
	y, m, d := o.CreatedAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, o.CreatedAt.Location())
}

// IsOrder reports whether the operation is a delivery order.
func (o *Operation) IsOrder() bool { return o != nil && o.Type == TypeOrder }

// IsReport reports whether the operation is a sales report.
func (o *Operation) IsReport() bool { return o != nil && o.Type == TypeReport }

// Counts is the inventory qualifying predicate.
func (o *Operation) Counts() bool {
	return Counts(o.Type, o.Status)
}

// Counts reports whether an operation of the given type and status contributes to inventory.
func Counts(t Type, s Status) bool {
	return (t == TypeOrder && s == StatusDelivered) || t == TypeReport
}

// Advance moves an order one step forward: pending to approved, approved to delivered.
func (o *Operation) Advance() error {
	if !o.IsOrder() {
		return &NotFoundError{Entity: "order", ID: o.idOrZero()}
	}
	switch o.Status {
	case StatusPending:
		o.Status = StatusApproved
	case StatusApproved:
		o.Status = StatusDelivered
	default:
		return &NotFoundError{Entity: "order", ID: o.ID}
	}
	return nil
}

// Cancel marks the order cancelled if the actor is allowed to.
// Customers may only cancel their own pending orders; admins may cancel any non-cancelled order.
func (o *Operation) Cancel(actorID int64, isAdmin bool) error {
	if !o.IsOrder() || o.Status == StatusCancelled {
		return &NotFoundError{Entity: "order", ID: o.idOrZero()}
	}
	if !isAdmin {
		if o.CustomerID != actorID {
			return &ForbiddenError{Reason: "only the owner or an admin can cancel this order"}
		}
		if o.Status != StatusPending {
			return &ForbiddenError{Reason: "only pending orders can be cancelled by the customer"}
		}
	}
	o.Status = StatusCancelled
	return nil
}

// Clone returns a deep copy.
func (o *Operation) Clone() *Operation {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]OperationItem(nil), o.Items...)
	return &clone
}

// ValidStatus reports whether status belongs to the domain of the given type.
func ValidStatus(t Type, s Status) bool {
	switch t {
	case TypeOrder:
		switch s {
		case StatusPending, StatusApproved, StatusDelivered, StatusCancelled:
			return true
		}
	case TypeReport:
		return s == StatusRecorded
	}
	return false
}

// Validate enforces structural invariants on persisted operations.
func (o *Operation) Validate() error {
	if o.CustomerID <= 0 {
		return &ValidationError{Field: "customer_id", Messages: []string{"customer is required"}}
	}
	if !ValidStatus(o.Type, o.Status) {
		return &ValidationError{Field: "status", Messages: []string{"status " + string(o.Status) + " is not valid for " + string(o.Type)}}
	}
	if len(o.Items) == 0 {
		return &ValidationError{Field: "items", Messages: []string{"at least one item is required"}}
	}
	for _, item := range o.Items {
		if item.Quantity == 0 {
			return &ValidationError{Field: "items", Messages: []string{"item quantity must not be zero"}}
		}
	}
	return nil
}

func (o *Operation) idOrZero() int64 {
	if o == nil {
		return 0
	}
	return o.ID
}
