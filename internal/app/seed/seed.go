// Package seed loads a fixed demo dataset: users, books and a few ledger operations.
// Loading is idempotent; records whose id or email already exist are left as they are.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	catalogports "github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
	opdomain "github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	opports "github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	userdomain "github.com/Apurer/book-distribution-api/internal/domains/users/domain"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

// Fixture is the seed document, also accepted as JSON.
type Fixture struct {
	Users      []User      `json:"users"`
	Books      []Book      `json:"books"`
	Operations []Operation `json:"operations"`
}

type User struct {
	ID       int64  `json:"id"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Book struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	SKU       string          `json:"sku,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Operation accepts both the normalized type/status pair and the legacy form where
// type carries the order status ("pending", "delivered", "cancelled").
type Operation struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	UserID    int64  `json:"user_id"`
	CreatedAt string `json:"created_at"`
	Items     []Item `json:"items"`
}

type Item struct {
	BookID   int64 `json:"book_id"`
	Quantity int64 `json:"qty"`
}

// Summary counts what a load actually created.
type Summary struct {
	Users      int
	Books      int
	Operations int
}

// Services are the application services the loader writes through.
type Services struct {
	Users      userports.Service
	Catalog    catalogports.Service
	Operations opports.Service
}

// DefaultFixture is the built-in demo dataset.
func DefaultFixture() Fixture {
	return Fixture{
		Users: []User{
			{ID: 1, Role: "admin", Name: "JEANNE", Email: "jeanne.admin@example.com", Password: "Admin123!"},
			{ID: 2, Role: "customer", Name: "AYA DISTRIBUTION", Email: "aya.partner@example.com", Password: "Password123"},
			{ID: 3, Role: "customer", Name: "BENOIT BOOKS", Email: "benoit.partner@example.com", Password: "Password123"},
		},
		Books: []Book{
			{ID: 1, Title: "DOM: Foundations", SKU: "DOM-FND", UnitPrice: decimal.NewFromInt(15)},
			{ID: 2, Title: "DOM: Practice", SKU: "DOM-PRC", UnitPrice: decimal.NewFromInt(17)},
			{ID: 3, Title: "DOM: Mindset", SKU: "DOM-MND", UnitPrice: decimal.NewFromInt(20)},
			{ID: 4, Title: "DOM: Leadership", SKU: "DOM-LDR", UnitPrice: decimal.NewFromInt(22)},
			{ID: 5, Title: "DOM: Future", SKU: "DOM-FTR", UnitPrice: decimal.NewFromInt(25)},
		},
		Operations: []Operation{
			{ID: 101, Type: "pending", UserID: 2, CreatedAt: "2025-09-07T11:30:00",
				Items: []Item{{BookID: 1, Quantity: 3}, {BookID: 3, Quantity: 2}}},
			{ID: 102, Type: "delivered", UserID: 3, CreatedAt: "2025-09-06T16:45:00",
				Items: []Item{{BookID: 2, Quantity: 6}, {BookID: 4, Quantity: 4}}},
			{ID: 201, Type: "report", UserID: 3, CreatedAt: "2025-09-07T14:10:00",
				Items: []Item{{BookID: 2, Quantity: -2}}},
			{ID: 103, Type: "cancelled", UserID: 2, CreatedAt: "2025-09-05T09:05:00",
				Items: []Item{{BookID: 5, Quantity: 1}}},
			{ID: 202, Type: "report", UserID: 3, CreatedAt: "2025-09-07T16:20:00",
				Items: []Item{{BookID: 4, Quantity: -1}}},
		},
	}
}

// LoadFile reads a JSON fixture from path.
func LoadFile(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read seed file: %w", err)
	}
	var fixture Fixture
	if err := json.Unmarshal(raw, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return fixture, nil
}

// Load writes the fixture through the services. Fixture user and book ids are mapped to the
// ids actually stored, so a user that already exists under another id still owns its operations.
func Load(ctx context.Context, svc Services, fixture Fixture, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var summary Summary

	userIDs := make(map[int64]int64, len(fixture.Users))
	for _, u := range fixture.Users {
		id, created, err := upsertUser(ctx, svc.Users, u)
		if err != nil {
			return summary, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		if created {
			summary.Users++
		}
		userIDs[u.ID] = id
	}

	bookIDs := make(map[int64]int64, len(fixture.Books))
	for _, b := range fixture.Books {
		id, created, err := upsertBook(ctx, svc.Catalog, b)
		if err != nil {
			return summary, fmt.Errorf("seed book %q: %w", b.Title, err)
		}
		if created {
			summary.Books++
		}
		bookIDs[b.ID] = id
	}

	for _, o := range fixture.Operations {
		op, err := toOperation(o, userIDs, bookIDs)
		if err != nil {
			return summary, fmt.Errorf("seed operation %d: %w", o.ID, err)
		}
		_, created, err := svc.Operations.ImportOperation(ctx, op)
		if err != nil {
			return summary, fmt.Errorf("seed operation %d: %w", o.ID, err)
		}
		if created {
			summary.Operations++
		}
	}
	logger.Info("seed completed",
		slog.Int("users.created", summary.Users),
		slog.Int("books.created", summary.Books),
		slog.Int("operations.created", summary.Operations))
	return summary, nil
}

func upsertUser(ctx context.Context, users userports.Service, u User) (int64, bool, error) {
	existing, err := users.GetByEmail(ctx, u.Email)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, userports.ErrNotFound) {
		return 0, false, err
	}
	created, err := users.CreateUser(ctx, userports.CreateUserInput{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
		Role:     userdomain.Role(u.Role),
	})
	if err != nil {
		return 0, false, err
	}
	return created.ID, true, nil
}

func upsertBook(ctx context.Context, catalog catalogports.Service, b Book) (int64, bool, error) {
	if b.ID != 0 {
		existing, err := catalog.GetBook(ctx, b.ID)
		if err == nil {
			return existing.Entity.ID, false, nil
		}
		if !errors.Is(err, catalogports.ErrNotFound) {
			return 0, false, err
		}
	}
	created, err := catalog.CreateBook(ctx, catalogports.BookInput{ID: b.ID, Title: b.Title, UnitPrice: b.UnitPrice})
	if err != nil {
		return 0, false, err
	}
	return created.Entity.ID, true, nil
}

func toOperation(o Operation, userIDs, bookIDs map[int64]int64) (*opdomain.Operation, error) {
	customerID, ok := userIDs[o.UserID]
	if !ok {
		return nil, fmt.Errorf("unknown user %d", o.UserID)
	}
	opType, status := normalizeType(o.Type, o.Status)
	createdAt, err := parseTimestamp(o.CreatedAt)
	if err != nil {
		return nil, err
	}
	op := &opdomain.Operation{
		ID:         o.ID,
		CustomerID: customerID,
		Type:       opType,
		Status:     status,
		CreatedAt:  createdAt,
	}
	for _, item := range o.Items {
		bookID, ok := bookIDs[item.BookID]
		if !ok {
			return nil, fmt.Errorf("unknown book %d", item.BookID)
		}
		op.Items = append(op.Items, opdomain.OperationItem{BookID: bookID, Quantity: item.Quantity})
	}
	return op, nil
}

func normalizeType(rawType, rawStatus string) (opdomain.Type, opdomain.Status) {
	switch strings.ToLower(strings.TrimSpace(rawType)) {
	case "pending", "approved", "delivered", "cancelled":
		return opdomain.TypeOrder, opdomain.Status(strings.ToLower(strings.TrimSpace(rawType)))
	case "report", "sales_report":
		return opdomain.TypeReport, opdomain.StatusRecorded
	case "order":
		if status := opdomain.Status(strings.ToLower(strings.TrimSpace(rawStatus))); opdomain.ValidStatus(opdomain.TypeOrder, status) {
			return opdomain.TypeOrder, status
		}
	}
	return opdomain.TypeOrder, opdomain.StatusPending
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseTimestamp accepts RFC 3339 or a naive local timestamp, read as UTC. Empty means now.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}
