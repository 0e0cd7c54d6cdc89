package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

type normalizedOrder struct {
	CustomerID int64         `json:"customer_id"`
	Lines      []domain.Line `json:"lines"`
}

// FingerprintOrder hashes an order submission independent of line order. The idempotency key itself is excluded.
func FingerprintOrder(customerID int64, lines []domain.Line) (string, error) {
	sorted := append([]domain.Line(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].BookID < sorted[j].BookID })
	payload, err := json.Marshal(normalizedOrder{CustomerID: customerID, Lines: sorted})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// ScopedIdempotencyKey namespaces a client key by customer.
func ScopedIdempotencyKey(customerID int64, key string) string {
	return fmt.Sprintf("%d:%s", customerID, strings.TrimSpace(key))
}
