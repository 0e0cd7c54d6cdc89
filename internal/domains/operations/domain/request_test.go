package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownUpTo(max int64) BookKnown {
	return func(id int64) bool { return id > 0 && id <= max }
}

func TestValidateForDeliveryReportsEveryLine(t *testing.T) {
	req := DeliveryRequest(2, []Line{
		{BookID: 1, Quantity: 0},
		{BookID: 2, Quantity: 3},
		{BookID: 2, Quantity: 1},
		{BookID: 99, Quantity: 1},
		{BookID: -4, Quantity: 1},
	})

	err := req.ValidateForDelivery(knownUpTo(10))

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "books", validation.Field)
	require.Len(t, validation.Items, 4)
	assert.Equal(t, "Quantity must be at least 1", validation.Items[0].Message)
	assert.Equal(t, "Book listed more than once", validation.Items[1].Message)
	assert.Equal(t, "Unknown book", validation.Items[2].Message)
	assert.Equal(t, int64(99), validation.Items[2].BookID)
	assert.Equal(t, "Book id must be positive", validation.Items[3].Message)
}

func TestValidateRequiresItems(t *testing.T) {
	err := SaleRequest(2, nil).ValidateForSale(knownUpTo(10))

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "sales", validation.Field)
	assert.Equal(t, []string{"At least one item is required"}, validation.Messages)
}

func TestValidateChecksKind(t *testing.T) {
	lines := []Line{{BookID: 1, Quantity: 1}}
	assert.ErrorIs(t, SaleRequest(2, lines).ValidateForDelivery(nil), ErrValidation)
	assert.ErrorIs(t, DeliveryRequest(2, lines).ValidateForSale(nil), ErrValidation)
	assert.NoError(t, DeliveryRequest(2, lines).ValidateForDelivery(nil))
	assert.ErrorIs(t, DeliveryRequest(0, lines).ValidateForDelivery(nil), ErrValidation)
}

func TestCheckStock(t *testing.T) {
	inv := Inventory{2: 4, 4: 1}
	req := SaleRequest(3, []Line{{BookID: 2, Quantity: 4}, {BookID: 4, Quantity: 3}, {BookID: 5, Quantity: 1}})

	err := req.CheckStock(inv)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ReasonInsufficient, conflict.Reason)
	require.Len(t, conflict.Items, 2)
	assert.Equal(t, ItemProblem{BookID: 4, Requested: 3, Available: 1, Message: "Insufficient stock: 1 available, 3 requested"}, conflict.Items[0])
	assert.Equal(t, int64(5), conflict.Items[1].BookID)
	assert.Equal(t, "Book is not in your inventory", conflict.Items[1].Message)

	require.NoError(t, SaleRequest(3, []Line{{BookID: 2, Quantity: 4}}).CheckStock(inv))
}

func TestNewOrderIsPending(t *testing.T) {
	op := NewOrder(2, []Line{{BookID: 1, Quantity: 3}}, time.Now())
	assert.Equal(t, StatusPending, op.Status)
	assert.Equal(t, []OperationItem{{BookID: 1, Quantity: 3}}, op.Items)
}
