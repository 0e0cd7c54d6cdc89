package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opworkflows "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/workflows"
)

func TestBuildServicesFallsBackToMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := Config{EventsBroker: BrokerNone, MetricsEnabled: true, SessionTTL: 1}

	services, cleanup, err := BuildServices(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	assert.Nil(t, services.DB)
	require.NotNil(t, services.Idempotency)

	inv, err := services.Operations.GetGlobalInventory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, inv)

	router := NewRouter(cfg, services, opworkflows.NewInlineOrderWorkflows(services.Operations))
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestNewRouterWithoutMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := Config{EventsBroker: BrokerNone, SessionTTL: 1}
	services, cleanup, err := BuildServices(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	router := NewRouter(cfg, services, opworkflows.NewInlineOrderWorkflows(services.Operations))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
