package bookdistserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	cataloghttpmapper "github.com/Apurer/book-distribution-api/internal/domains/catalog/adapters/http/mapper"
	catalogports "github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
)

// BookAPI exposes the catalog.
type BookAPI struct {
	catalog catalogports.Service
}

func NewBookAPI(catalog catalogports.Service) BookAPI {
	return BookAPI{catalog: catalog}
}

// Get /api/books
func (api *BookAPI) ListBooks(c *gin.Context) {
	books, err := api.catalog.ListBooks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cataloghttpmapper.FromProjections(books))
}

// Get /api/books/:bookId
func (api *BookAPI) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}
	book, err := api.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cataloghttpmapper.FromProjection(book))
}

// Post /api/admin/books
func (api *BookAPI) CreateBook(c *gin.Context) {
	var payload cataloghttpmapper.BookInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	book, err := api.catalog.CreateBook(c.Request.Context(), cataloghttpmapper.ToBookInput(payload))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cataloghttpmapper.FromProjection(book))
}

// Put /api/admin/books/:bookId
func (api *BookAPI) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}
	var payload cataloghttpmapper.BookInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	book, err := api.catalog.UpdateBook(c.Request.Context(), id, cataloghttpmapper.ToBookInput(payload))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cataloghttpmapper.FromProjection(book))
}

// Get /api/series
func (api *BookAPI) ListSeries(c *gin.Context) {
	series, err := api.catalog.ListSeries(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cataloghttpmapper.FromSeries(series))
}

// Post /api/admin/series
func (api *BookAPI) CreateSeries(c *gin.Context) {
	var payload cataloghttpmapper.Series
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	series, err := api.catalog.CreateSeries(c.Request.Context(), payload.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cataloghttpmapper.Series{ID: series.ID, Name: series.Name})
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	value := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
