package bookdistserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Access is the authentication level a route requires.
type Access int

const (
	Public Access = iota
	Authenticated
	CustomerOnly
	AdminOnly
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// Access guards the route before HandlerFunc runs.
	Access Access
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers of every API section.
type ApiHandleFunctions struct {
	AuthAPI      AuthAPI
	BookAPI      BookAPI
	OperationAPI OperationAPI
	AdminAPI     AdminAPI
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions, auth *Authenticator, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)
	return NewRouterWithGinEngine(router, handleFunctions, auth)
}

// NewRouterWithGinEngine adds routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions, auth *Authenticator) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		handlers := append(auth.guard(route.Access), route.HandlerFunc)
		router.Handle(route.Method, route.Pattern, handlers...)
	}
	return router
}

// DefaultHandleFunc is the default handler for not yet implemented routes.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(h ApiHandleFunctions) []Route {
	return []Route{
		{"Healthz", http.MethodGet, "/healthz", Public, Healthz},

		{"Signup", http.MethodPost, "/auth/signup", Public, h.AuthAPI.Signup},
		{"Login", http.MethodPost, "/auth/login", Public, h.AuthAPI.Login},
		{"Logout", http.MethodPost, "/auth/logout", Authenticated, h.AuthAPI.Logout},
		{"Me", http.MethodGet, "/api/me", Authenticated, h.AuthAPI.Me},
		{"UpdateProfile", http.MethodPut, "/api/me/profile", Authenticated, h.AuthAPI.UpdateProfile},

		{"ListBooks", http.MethodGet, "/api/books", Authenticated, h.BookAPI.ListBooks},
		{"GetBook", http.MethodGet, "/api/books/:bookId", Authenticated, h.BookAPI.GetBook},
		{"ListSeries", http.MethodGet, "/api/series", Authenticated, h.BookAPI.ListSeries},

		{"MyInventory", http.MethodGet, "/api/me/inventory", CustomerOnly, h.OperationAPI.MyInventory},
		{"MyStats", http.MethodGet, "/api/me/stats", CustomerOnly, h.OperationAPI.MyStats},
		{"MyEligibility", http.MethodGet, "/api/me/eligibility", CustomerOnly, h.OperationAPI.MyEligibility},
		{"SubmitOrder", http.MethodPost, "/api/orders", CustomerOnly, h.OperationAPI.SubmitOrder},
		{"ListOrders", http.MethodGet, "/api/orders", CustomerOnly, h.OperationAPI.ListOrders},
		{"CancelOrder", http.MethodDelete, "/api/orders/:operationId", CustomerOnly, h.OperationAPI.CancelOrder},
		{"SubmitReport", http.MethodPost, "/api/reports", CustomerOnly, h.OperationAPI.SubmitReport},
		{"ListReports", http.MethodGet, "/api/reports", CustomerOnly, h.OperationAPI.ListReports},
		{"GetOperation", http.MethodGet, "/api/operations/:operationId", Authenticated, h.OperationAPI.GetOperation},

		{"AdminCreateBook", http.MethodPost, "/api/admin/books", AdminOnly, h.BookAPI.CreateBook},
		{"AdminUpdateBook", http.MethodPut, "/api/admin/books/:bookId", AdminOnly, h.BookAPI.UpdateBook},
		{"AdminCreateSeries", http.MethodPost, "/api/admin/series", AdminOnly, h.BookAPI.CreateSeries},
		{"AdminListUsers", http.MethodGet, "/api/admin/users", AdminOnly, h.AdminAPI.ListUsers},
		{"AdminOverview", http.MethodGet, "/api/admin/operations", AdminOnly, h.AdminAPI.Overview},
		{"AdminExportOperations", http.MethodGet, "/api/admin/operations/export.csv", AdminOnly, h.AdminAPI.ExportOperations},
		{"AdminAdvanceOrder", http.MethodPost, "/api/admin/orders/:operationId/advance", AdminOnly, h.AdminAPI.AdvanceOrder},
		{"AdminDeleteOperation", http.MethodDelete, "/api/admin/operations/:operationId", AdminOnly, h.AdminAPI.DeleteOperation},
		{"AdminGlobalInventory", http.MethodGet, "/api/admin/inventory", AdminOnly, h.AdminAPI.GlobalInventory},
		{"AdminUserInventory", http.MethodGet, "/api/admin/users/:userId/inventory", AdminOnly, h.AdminAPI.UserInventory},
		{"AdminUserStats", http.MethodGet, "/api/admin/users/:userId/stats", AdminOnly, h.AdminAPI.UserStats},
	}
}

// Healthz reports liveness.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
