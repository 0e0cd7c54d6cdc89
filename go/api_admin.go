package bookdistserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	ophttpmapper "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/http/mapper"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	opports "github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	userhttpmapper "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/http/mapper"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

// AdminAPI covers the administrator dashboard.
type AdminAPI struct {
	service opports.Service
	users   userports.Service
}

func NewAdminAPI(service opports.Service, users userports.Service) AdminAPI {
	return AdminAPI{service: service, users: users}
}

// Get /api/admin/users
func (api *AdminAPI) ListUsers(c *gin.Context) {
	users, err := api.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userhttpmapper.FromDomainUsers(users))
}

// Get /api/admin/operations
// Operations awaiting action, then the rest
func (api *AdminAPI) Overview(c *gin.Context) {
	filter, ok := adminFilter(c)
	if !ok {
		return
	}
	overview, err := api.service.AdminOverview(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromOverview(overview))
}

// Get /api/admin/operations/export.csv
func (api *AdminAPI) ExportOperations(c *gin.Context) {
	filter, ok := adminFilter(c)
	if !ok {
		return
	}
	ops, err := api.service.ListOperations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="operations.csv"`)
	c.Status(http.StatusOK)
	if err := ophttpmapper.WriteCSV(c.Writer, ops); err != nil {
		_ = c.Error(err)
	}
}

// Post /api/admin/orders/:operationId/advance
// Confirm a pending order or mark an approved one delivered
func (api *AdminAPI) AdvanceOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "operationId")
	if !ok {
		return
	}
	op, err := api.service.AdvanceOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromOperation(op))
}

// Delete /api/admin/operations/:operationId
// Reports are deleted; orders are cancelled and kept.
func (api *AdminAPI) DeleteOperation(c *gin.Context) {
	id, ok := parseIDParam(c, "operationId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	admin := currentUser(c)
	op, err := api.service.GetOperation(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if op.IsReport() {
		if err := api.service.DeleteReport(ctx, id, admin.ID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}
	cancelled, err := api.service.CancelOrder(ctx, id, admin.ID, true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromOperation(cancelled))
}

// Get /api/admin/inventory
func (api *AdminAPI) GlobalInventory(c *gin.Context) {
	inv, err := api.service.GetGlobalInventory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromInventory(0, inv))
}

// Get /api/admin/users/:userId/inventory
func (api *AdminAPI) UserInventory(c *gin.Context) {
	id, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	if _, err := api.users.GetUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, userports.ErrNotFound) {
			respondError(c, &domain.NotFoundError{Entity: "user", ID: id})
			return
		}
		respondError(c, err)
		return
	}
	inv, err := api.service.GetInventory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromInventory(id, inv))
}

// Get /api/admin/users/:userId/stats
func (api *AdminAPI) UserStats(c *gin.Context) {
	id, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	stats, err := api.service.GetUserStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromStats(stats))
}

func adminFilter(c *gin.Context) (domain.Filter, bool) {
	filter := domain.Filter{Statuses: statusesQuery(c)}
	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "customer_id must be a positive integer")
			return domain.Filter{}, false
		}
		filter.CustomerID = id
	}
	switch t := domain.Type(strings.TrimSpace(c.Query("type"))); t {
	case "", domain.TypeOrder, domain.TypeReport:
		filter.Type = t
	default:
		badRequest(c, "type must be order or report")
		return domain.Filter{}, false
	}
	return filter, true
}
