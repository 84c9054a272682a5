package search

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SearchRequest is the query string of a search request.
type SearchRequest struct {
	Query string `query:"q" validate:"notblank,max=200"`
	Page  int    `query:"page" validate:"min=1,max=10000"`
}

// Handlers provides HTTP handlers for aggregated search.
type Handlers struct {
	searcher Searcher
}

// NewHandlers creates search handlers. searcher is usually a Service,
// optionally wrapped by a response cache.
func NewHandlers(searcher Searcher) *Handlers {
	return &Handlers{searcher: searcher}
}

// RegisterRoutes registers search routes on the movies group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
}

// Search runs an aggregated search.
// GET /api/v1/movies/search?q=&page=
func (h *Handlers) Search(c echo.Context) error {
	req := SearchRequest{Page: 1}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid query parameters"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := h.searcher.Search(c.Request().Context(), req.Query, req.Page)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}
