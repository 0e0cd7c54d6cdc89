package mapper

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

// LinesRequest is the body of an order or a sales report.
type LinesRequest struct {
	Items []domain.Line `json:"items"`
}

// Item is one line of an operation.
type Item struct {
	BookID   int64 `json:"book_id"`
	Quantity int64 `json:"quantity"`
}

// Operation is the transport view of an order or report.
type Operation struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Date       string    `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
	Notes      string    `json:"notes,omitempty"`
	Items      []Item    `json:"items"`
}

// Overview is the admin dashboard payload.
type Overview struct {
	Actionable []Operation `json:"actionable"`
	History    []Operation `json:"history"`
}

// StockLine is one entry of an inventory listing.
type StockLine struct {
	BookID   int64 `json:"book_id"`
	Quantity int64 `json:"quantity"`
}

// Inventory lists stock by ascending book id.
type Inventory struct {
	CustomerID int64       `json:"customer_id,omitempty"`
	Items      []StockLine `json:"items"`
}

// Stats is the per-user sales summary.
type Stats struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalSales     int64           `json:"total_sales"`
	TotalDelivered int64           `json:"total_delivered"`
	DeliveryRatio  float64         `json:"delivery_ratio"`
}

// Eligibility tells a customer whether a new delivery request is accepted.
type Eligibility struct {
	CanRequest                bool   `json:"can_request"`
	HasReportedSinceLastOrder bool   `json:"has_reported_since_last_order"`
	LastOrderID               *int64 `json:"last_order_id,omitempty"`
	LastOrderStatus           string `json:"last_order_status,omitempty"`
	Reason                    string `json:"reason,omitempty"`
}

func FromOperation(op *domain.Operation) Operation {
	if op == nil {
		return Operation{}
	}
	items := make([]Item, 0, len(op.Items))
	for _, item := range op.Items {
		items = append(items, Item{BookID: item.BookID, Quantity: item.Quantity})
	}
	return Operation{
		ID:         op.ID,
		CustomerID: op.CustomerID,
		Type:       string(op.Type),
		Status:     string(op.Status),
		Date:       op.Date().Format(time.DateOnly),
		CreatedAt:  op.CreatedAt,
		Notes:      op.Notes,
		Items:      items,
	}
}

func FromOperations(ops []*domain.Operation) []Operation {
	result := make([]Operation, 0, len(ops))
	for _, op := range ops {
		result = append(result, FromOperation(op))
	}
	return result
}

func FromOverview(overview domain.Overview) Overview {
	return Overview{
		Actionable: FromOperations(overview.Actionable),
		History:    FromOperations(overview.History),
	}
}

func FromInventory(customerID int64, inv domain.Inventory) Inventory {
	items := make([]StockLine, 0, len(inv))
	for bookID, qty := range inv {
		items = append(items, StockLine{BookID: bookID, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].BookID < items[j].BookID })
	return Inventory{CustomerID: customerID, Items: items}
}

func FromStats(stats domain.UserStats) Stats {
	return Stats{
		TotalAmount:    stats.TotalAmount,
		TotalSales:     stats.TotalSales,
		TotalDelivered: stats.TotalDelivered,
		DeliveryRatio:  stats.DeliveryRatio,
	}
}

func FromEligibility(e ports.Eligibility) Eligibility {
	out := Eligibility{
		CanRequest:                e.Allowed(),
		HasReportedSinceLastOrder: e.HasReportedSinceLastOrder,
		Reason:                    e.Rejection(),
	}
	if e.LastOrder != nil {
		id := e.LastOrder.ID
		out.LastOrderID = &id
		out.LastOrderStatus = string(e.LastOrder.Status)
	}
	return out
}
