//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "book-distribution-api"
	ConsumerName = "distributor-portal"

	StateCatalogBaseline = "books 1 and 2 are in the catalog"
	StateCustomerFresh   = "customer 2 has no operations"
	StateCustomerPending = "customer 2 has a pending order"
	StateCustomerStocked = "customer 2 holds 4 of book 1"
)

const (
	ExistingBookID int64 = 1
	MissingBookID  int64 = 404

	CustomerID       int64 = 2
	CustomerEmail          = "pact.customer@example.com"
	CustomerPassword       = "pact-pass-123"

	// CustomerToken is the placeholder bearer token the consumer sends. The provider
	// swaps it for a live session token before the request reaches the router.
	CustomerToken = "pact-customer-token"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the distributor portal consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleBookPayload is the book every catalog state exposes as id 1.
func ExampleBookPayload() map[string]any {
	return map[string]any{
		"id":         ExistingBookID,
		"title":      "Foundations",
		"unit_price": "10",
	}
}

// ExampleOrderLines asks for three copies of the first book.
func ExampleOrderLines() map[string]any {
	return map[string]any{
		"items": []map[string]any{{"book_id": ExistingBookID, "quantity": 3}},
	}
}

// ExampleFollowUpLines is a second request for one copy of the other book.
func ExampleFollowUpLines() map[string]any {
	return map[string]any{
		"items": []map[string]any{{"book_id": ExistingBookID + 1, "quantity": 1}},
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
