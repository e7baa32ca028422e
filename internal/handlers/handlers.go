package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/phardev/phardata/internal/db"
)

type Handler struct {
	repo *db.Repository
}

func New(repo *db.Repository) *Handler {
	return &Handler{repo: repo}
}

// Health returns application health status
// @Summary Health check
// @Description Returns the health status of the application
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ListPharmacies handles GET /api/pharmacies
// Serves the dashboard's pharmacy scope picker.
func (h *Handler) ListPharmacies(c echo.Context) error {
	pharmacies, err := h.repo.ListPharmacies(c.Request().Context())
	if err != nil {
		log.Printf("Error listing pharmacies: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Message: "listing pharmacies failed"})
	}
	return c.JSON(http.StatusOK, pharmacies)
}

// SearchProducts handles GET /api/products?query=...&limit=...
// Searches the reference catalog by name or EAN13 code.
func (h *Handler) SearchProducts(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "query parameter is required"})
	}

	limit := 0
	if p := c.QueryParam("limit"); p != "" {
		limit, _ = strconv.Atoi(p)
	}

	products, err := h.repo.SearchGlobalProducts(c.Request().Context(), query, limit)
	if err != nil {
		log.Printf("Error searching products: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Message: "product search failed"})
	}
	return c.JSON(http.StatusOK, products)
}
