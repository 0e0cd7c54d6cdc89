//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	pacttest "github.com/Apurer/book-distribution-api/test/pact"

	bookdistserver "github.com/Apurer/book-distribution-api/go"
	catalogmemory "github.com/Apurer/book-distribution-api/internal/domains/catalog/adapters/memory"
	catalogobs "github.com/Apurer/book-distribution-api/internal/domains/catalog/adapters/observability"
	catalogapp "github.com/Apurer/book-distribution-api/internal/domains/catalog/application"
	catalogports "github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
	oplookup "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/lookup"
	opmemory "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/memory"
	opobs "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/observability"
	opworkflows "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/workflows"
	opapp "github.com/Apurer/book-distribution-api/internal/domains/operations/application"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	opports "github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	usermemory "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/memory"
	userobs "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/observability"
	userapp "github.com/Apurer/book-distribution-api/internal/domains/users/application"
	userdomain "github.com/Apurer/book-distribution-api/internal/domains/users/domain"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDistributionProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	state := func(prepare func(t testing.TB)) models.StateHandler {
		return func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			if setup && prepare != nil {
				prepare(t)
			}
			return nil, nil
		}
	}

	verifier := pactprovider.NewVerifier()
	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers: models.StateHandlers{
			pacttest.StateCatalogBaseline: state(nil),
			pacttest.StateCustomerFresh:   state(nil),
			pacttest.StateCustomerPending: state(func(t testing.TB) { app.order(t, false) }),
			pacttest.StateCustomerStocked: state(func(t testing.TB) { app.order(t, true) }),
		},
		BeforeEach: func() error {
			app.reset(t)
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp rebuilds memory-backed services for every provider state.
type contractProviderApp struct {
	server *httptest.Server

	mu         sync.RWMutex
	router     http.Handler
	token      string
	operations opports.Service
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset(t)
	app.server = httptest.NewServer(http.HandlerFunc(app.serve))
	t.Cleanup(app.server.Close)
	return app
}

// serve swaps the consumer's placeholder bearer token for the live session.
func (a *contractProviderApp) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	router, token := a.router, a.token
	a.mu.RUnlock()
	if r.Header.Get("Authorization") == "Bearer "+pacttest.CustomerToken {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, r)
}

func (a *contractProviderApp) reset(t testing.TB) {
	t.Helper()
	ctx := context.Background()

	users := userobs.New(userapp.NewService(usermemory.NewRepository(), usermemory.NewSessionStore(time.Hour)))
	catalog := catalogobs.New(catalogapp.NewService(catalogmemory.NewRepository()))
	operations := opobs.New(opapp.NewService(opmemory.NewLedger(), oplookup.NewCatalog(catalog), oplookup.NewUsers(users)))

	_, err := users.CreateUser(ctx, userports.CreateUserInput{
		ID: pacttest.CustomerID, Name: "PACT", Email: pacttest.CustomerEmail, Password: pacttest.CustomerPassword, Role: userdomain.RoleCustomer,
	})
	require.NoError(t, err)
	token, _, err := users.Login(ctx, pacttest.CustomerEmail, pacttest.CustomerPassword)
	require.NoError(t, err)
	for id, title := range map[int64]string{1: "Foundations", 2: "Practice"} {
		_, err := catalog.CreateBook(ctx, catalogports.BookInput{ID: id, Title: title, UnitPrice: decimal.NewFromInt(10 * id)})
		require.NoError(t, err)
	}

	handlers := bookdistserver.ApiHandleFunctions{
		AuthAPI:      bookdistserver.NewAuthAPI(users),
		BookAPI:      bookdistserver.NewBookAPI(catalog),
		OperationAPI: bookdistserver.NewOperationAPI(operations, opworkflows.NewInlineOrderWorkflows(operations)),
		AdminAPI:     bookdistserver.NewAdminAPI(operations, users),
	}
	router := bookdistserver.NewRouter(handlers, bookdistserver.NewAuthenticator(users))

	a.mu.Lock()
	a.router, a.token, a.operations = router, token, operations
	a.mu.Unlock()
}

// order places an order for four copies of book 1, delivering it when asked.
func (a *contractProviderApp) order(t testing.TB, deliver bool) {
	t.Helper()
	ctx := context.Background()
	op, err := a.operations.SubmitOrder(ctx, pacttest.CustomerID, []domain.Line{{BookID: pacttest.ExistingBookID, Quantity: 4}})
	require.NoError(t, err)
	if !deliver {
		return
	}
	for i := 0; i < 2; i++ {
		_, err := a.operations.AdvanceOrder(ctx, op.ID)
		require.NoError(t, err)
	}
}
