package domain

import "fmt"

// Kind selects the validation rules applied to an OperationRequest.
type Kind string

const (
	KindDelivery Kind = "delivery"
	KindSale     Kind = "sale"
)

// Line is one requested book and a positive quantity.
type Line struct {
	BookID   int64 `json:"book_id"`
	Quantity int64 `json:"quantity"`
}

// OperationRequest is a customer submission, either a delivery request or a sales report.
type OperationRequest struct {
	Kind       Kind
	CustomerID int64
	Lines      []Line
	Notes      string
}

// DeliveryRequest builds a delivery variant.
func DeliveryRequest(customerID int64, lines []Line) OperationRequest {
	return OperationRequest{Kind: KindDelivery, CustomerID: customerID, Lines: lines}
}

// SaleRequest builds a sales report variant.
func SaleRequest(customerID int64, lines []Line) OperationRequest {
	return OperationRequest{Kind: KindSale, CustomerID: customerID, Lines: lines}
}

// BookKnown reports whether a book id exists in the catalog.
type BookKnown func(bookID int64) bool

// ValidateForDelivery checks a delivery request. Every offending line is reported.
func (r OperationRequest) ValidateForDelivery(known BookKnown) error {
	if r.Kind != KindDelivery {
		return &ValidationError{Field: "kind", Messages: []string{"expected a delivery request"}}
	}
	return r.validateLines("books", known)
}

// ValidateForSale checks a sales report. Stock is checked separately by CheckStock.
func (r OperationRequest) ValidateForSale(known BookKnown) error {
	if r.Kind != KindSale {
		return &ValidationError{Field: "kind", Messages: []string{"expected a sales report"}}
	}
	return r.validateLines("sales", known)
}

// CheckStock rejects every line whose quantity exceeds current stock.
func (r OperationRequest) CheckStock(inv Inventory) error {
	var problems []ItemProblem
	for _, line := range r.Lines {
		available := inv.Stock(line.BookID)
		switch {
		case available <= 0:
			problems = append(problems, ItemProblem{
				BookID:    line.BookID,
				Requested: line.Quantity,
				Available: 0,
				Message:   "Book is not in your inventory",
			})
		case available < line.Quantity:
			problems = append(problems, ItemProblem{
				BookID:    line.BookID,
				Requested: line.Quantity,
				Available: available,
				Message:   fmt.Sprintf("%s: %d available, %d requested", ReasonInsufficient, available, line.Quantity),
			})
		}
	}
	if len(problems) > 0 {
		return &ConflictError{Reason: ReasonInsufficient, Items: problems}
	}
	return nil
}

func (r OperationRequest) validateLines(field string, known BookKnown) error {
	if r.CustomerID <= 0 {
		return &ValidationError{Field: "customer_id", Messages: []string{"customer is required"}}
	}
	if len(r.Lines) == 0 {
		return &ValidationError{Field: field, Messages: []string{"At least one item is required"}}
	}
	seen := make(map[int64]bool, len(r.Lines))
	var problems []ItemProblem
	for _, line := range r.Lines {
		switch {
		case line.BookID <= 0:
			problems = append(problems, ItemProblem{BookID: line.BookID, Requested: line.Quantity, Message: "Book id must be positive"})
		case line.Quantity <= 0:
			problems = append(problems, ItemProblem{BookID: line.BookID, Requested: line.Quantity, Message: "Quantity must be at least 1"})
		case seen[line.BookID]:
			problems = append(problems, ItemProblem{BookID: line.BookID, Requested: line.Quantity, Message: "Book listed more than once"})
		case known != nil && !known(line.BookID):
			problems = append(problems, ItemProblem{BookID: line.BookID, Requested: line.Quantity, Message: "Unknown book"})
		}
		seen[line.BookID] = true
	}
	if len(problems) > 0 {
		return &ValidationError{Field: field, Items: problems}
	}
	return nil
}
