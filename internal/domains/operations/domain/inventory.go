package domain

import "github.com/shopspring/decimal"

// Inventory maps book id to signed stock. Books with no or net-zero entries are absent.
type Inventory map[int64]int64

// Stock returns the stock for a book, zero when absent.
func (inv Inventory) Stock(bookID int64) int64 {
	if inv == nil {
		return 0
	}
	return inv[bookID]
}

// Add folds a delta into the inventory, dropping books that net out to zero.
func (inv Inventory) Add(bookID, delta int64) {
	total := inv[bookID] + delta
	if total == 0 {
		delete(inv, bookID)
		return
	}
	inv[bookID] = total
}

// Project folds qualifying operations into an inventory.
func Project(ops []*Operation) Inventory {
	inv := Inventory{}
	for _, op := range ops {
		if op == nil || !op.Counts() {
			continue
		}
		for _, item := range op.Items {
			inv.Add(item.BookID, item.Quantity)
		}
	}
	return inv
}

// UserStats summarises a customer's sales against deliveries.
type UserStats struct {
	TotalAmount    decimal.Decimal
	TotalSales     int64
	TotalDelivered int64
	// DeliveryRatio is sold over delivered.
	DeliveryRatio float64
}

// ComputeStats derives stats from units sold per book, units delivered and book prices.
// A sold book without a known price contributes no amount.
func ComputeStats(soldByBook map[int64]int64, delivered int64, prices map[int64]decimal.Decimal) UserStats {
	stats := UserStats{TotalAmount: decimal.Zero, TotalDelivered: delivered}
	for bookID, units := range soldByBook {
		stats.TotalSales += units
		if price, ok := prices[bookID]; ok {
			stats.TotalAmount = stats.TotalAmount.Add(price.Mul(decimal.NewFromInt(units)))
		}
	}
	if delivered > 0 {
		ratio := decimal.NewFromInt(stats.TotalSales).Div(decimal.NewFromInt(delivered)).RoundBank(2)
		stats.DeliveryRatio = ratio.InexactFloat64()
	}
	return stats
}
