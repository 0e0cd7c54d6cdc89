package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	catalogmemory "github.com/Apurer/book-distribution-api/internal/domains/catalog/adapters/memory"
	catalogapp "github.com/Apurer/book-distribution-api/internal/domains/catalog/application"
	oplookup "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/lookup"
	opmemory "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/memory"
	opapp "github.com/Apurer/book-distribution-api/internal/domains/operations/application"
	opdomain "github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	usermemory "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/memory"
	userapp "github.com/Apurer/book-distribution-api/internal/domains/users/application"
	userdomain "github.com/Apurer/book-distribution-api/internal/domains/users/domain"
)

func init() {
	userdomain.PasswordCost = bcrypt.MinCost
}

func newServices() Services {
	users := userapp.NewService(usermemory.NewRepository(), usermemory.NewSessionStore(time.Hour))
	catalog := catalogapp.NewService(catalogmemory.NewRepository())
	operations := opapp.NewService(opmemory.NewLedger(), oplookup.NewCatalog(catalog), oplookup.NewUsers(users))
	return Services{Users: users, Catalog: catalog, Operations: operations}
}

func TestLoadDefaultFixtureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newServices()

	first, err := Load(ctx, svc, DefaultFixture(), nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 3, Books: 5, Operations: 5}, first)

	second, err := Load(ctx, svc, DefaultFixture(), nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, second)

	ops, err := svc.Operations.ListOperations(ctx, opdomain.Filter{})
	require.NoError(t, err)
	assert.Len(t, ops, 5)
}

func TestLoadDefaultFixtureProjectsInventory(t *testing.T) {
	ctx := context.Background()
	svc := newServices()
	_, err := Load(ctx, svc, DefaultFixture(), nil)
	require.NoError(t, err)

	benoit, err := svc.Operations.GetInventory(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, opdomain.Inventory{2: 4, 4: 3}, benoit)

	aya, err := svc.Operations.GetInventory(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, aya)

	gate, err := svc.Operations.CanRequestDelivery(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, opdomain.ReasonPendingOrder, gate.Rejection())

	gate, err = svc.Operations.CanRequestDelivery(ctx, 3)
	require.NoError(t, err)
	assert.True(t, gate.Allowed())

	admin, err := svc.Users.GetByEmail(ctx, "jeanne.admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
}

func TestLoadFileReadsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	doc := `{
		"users": [{"id": 7, "role": "customer", "name": "SHOP", "email": "shop@example.com", "password": "secret"}],
		"books": [{"id": 9, "title": "Atlas", "unit_price": 12.5}],
		"operations": [{"id": 300, "type": "order", "status": "delivered", "user_id": 7, "created_at": "2025-09-01T10:00:00Z",
			"items": [{"book_id": 9, "qty": 2}]}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	fixture, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, fixture.Books, 1)
	assert.Equal(t, "12.5", fixture.Books[0].UnitPrice.String())

	ctx := context.Background()
	svc := newServices()
	summary, err := Load(ctx, svc, fixture, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 1, Books: 1, Operations: 1}, summary)

	op, err := svc.Operations.GetOperation(ctx, 300)
	require.NoError(t, err)
	assert.Equal(t, opdomain.StatusDelivered, op.Status)
	assert.Equal(t, time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC), op.CreatedAt)
}

func TestLoadRejectsUnknownReferences(t *testing.T) {
	fixture := Fixture{Operations: []Operation{{ID: 1, Type: "pending", UserID: 42, Items: []Item{{BookID: 1, Quantity: 1}}}}}
	_, err := Load(context.Background(), newServices(), fixture, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown user 42")
}

func TestNormalizeType(t *testing.T) {
	cases := []struct {
		rawType, rawStatus string
		wantType           opdomain.Type
		wantStatus         opdomain.Status
	}{
		{"pending", "", opdomain.TypeOrder, opdomain.StatusPending},
		{"delivered", "delivered", opdomain.TypeOrder, opdomain.StatusDelivered},
		{"cancelled", "", opdomain.TypeOrder, opdomain.StatusCancelled},
		{"report", "recorded", opdomain.TypeReport, opdomain.StatusRecorded},
		{"order", "approved", opdomain.TypeOrder, opdomain.StatusApproved},
		{"order", "recorded", opdomain.TypeOrder, opdomain.StatusPending},
	}
	for _, tc := range cases {
		gotType, gotStatus := normalizeType(tc.rawType, tc.rawStatus)
		assert.Equal(t, tc.wantType, gotType, tc.rawType)
		assert.Equal(t, tc.wantStatus, gotStatus, tc.rawType)
	}
}
