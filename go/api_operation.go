package bookdistserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ophttpmapper "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/http/mapper"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	opports "github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

// IdempotencyKeyHeader makes a repeated order submission return the first result.
const IdempotencyKeyHeader = "Idempotency-Key"

// OperationAPI covers the customer side of orders, reports and inventory.
type OperationAPI struct {
	service   opports.Service
	workflows opports.WorkflowOrchestrator
}

func NewOperationAPI(service opports.Service, workflows opports.WorkflowOrchestrator) OperationAPI {
	return OperationAPI{service: service, workflows: workflows}
}

// Post /api/orders
// Request a delivery
func (api *OperationAPI) SubmitOrder(c *gin.Context) {
	var payload ophttpmapper.LinesRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	input := opports.SubmitOrderInput{
		CustomerID:     currentUser(c).ID,
		Lines:          payload.Items,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)),
	}
	var (
		op  *domain.Operation
		err error
	)
	if api.workflows != nil {
		op, err = api.workflows.SubmitOrder(c.Request.Context(), input)
	} else {
		op, err = api.service.SubmitOrder(c.Request.Context(), input.CustomerID, input.Lines)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ophttpmapper.FromOperation(op))
}

// Get /api/orders
func (api *OperationAPI) ListOrders(c *gin.Context) {
	api.listOwn(c, domain.TypeOrder)
}

// Delete /api/orders/:operationId
// Cancel one's own pending order
func (api *OperationAPI) CancelOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "operationId")
	if !ok {
		return
	}
	op, err := api.service.CancelOrder(c.Request.Context(), id, currentUser(c).ID, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromOperation(op))
}

// Post /api/reports
// Report sold books
func (api *OperationAPI) SubmitReport(c *gin.Context) {
	var payload ophttpmapper.LinesRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	op, err := api.service.SubmitReport(c.Request.Context(), currentUser(c).ID, payload.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ophttpmapper.FromOperation(op))
}

// Get /api/reports
func (api *OperationAPI) ListReports(c *gin.Context) {
	api.listOwn(c, domain.TypeReport)
}

// Get /api/operations/:operationId
// Customers only see their own operations; others read as not found.
func (api *OperationAPI) GetOperation(c *gin.Context) {
	id, ok := parseIDParam(c, "operationId")
	if !ok {
		return
	}
	op, err := api.service.GetOperation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if me := currentUser(c); !me.IsAdmin() && op.CustomerID != me.ID {
		respondError(c, &domain.NotFoundError{Entity: "operation", ID: id})
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromOperation(op))
}

// Get /api/me/inventory
func (api *OperationAPI) MyInventory(c *gin.Context) {
	me := currentUser(c)
	inv, err := api.service.GetInventory(c.Request.Context(), me.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromInventory(me.ID, inv))
}

// Get /api/me/stats
func (api *OperationAPI) MyStats(c *gin.Context) {
	stats, err := api.service.GetUserStats(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromStats(stats))
}

// Get /api/me/eligibility
func (api *OperationAPI) MyEligibility(c *gin.Context) {
	result, err := api.service.CanRequestDelivery(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromEligibility(result))
}

func (api *OperationAPI) listOwn(c *gin.Context, t domain.Type) {
	filter := domain.Filter{CustomerID: currentUser(c).ID, Type: t, Statuses: statusesQuery(c)}
	ops, err := api.service.ListOperations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ophttpmapper.FromOperations(ops))
}

func statusesQuery(c *gin.Context) []domain.Status {
	var statuses []domain.Status
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, domain.Status(part))
			}
		}
	}
	return statuses
}
