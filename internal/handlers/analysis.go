package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/phardev/phardata/internal/analytics"
	"github.com/phardev/phardata/internal/taxonomy"
)

// maxLabRows bounds the market-share table served to dashboards.
const maxLabRows = 10

const defaultProductLimit = 10

// AnalysisHandler serves the segment analysis and evolution endpoints. It is
// thin plumbing: parse params, call the engine, serialize the result.
type AnalysisHandler struct {
	engine *analytics.Engine
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(engine *analytics.Engine) *AnalysisHandler {
	return &AnalysisHandler{engine: engine}
}

// ErrorResponse is the JSON error payload for analysis endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// parseScope reads the shared scope query params:
// - date_from, date_to: required, YYYY-MM-DD
// - comparison_date_from, comparison_date_to: optional pair, YYYY-MM-DD
// - pharmacy: comma-separated pharmacy IDs (empty = all pharmacies)
func parseScope(c echo.Context) (analytics.Scope, error) {
	var scope analytics.Scope

	from, err := parseDate(c.QueryParam("date_from"))
	if err != nil {
		return scope, fmt.Errorf("%w: date_from: %v", analytics.ErrInvalidScope, err)
	}
	to, err := parseDate(c.QueryParam("date_to"))
	if err != nil {
		return scope, fmt.Errorf("%w: date_to: %v", analytics.ErrInvalidScope, err)
	}
	scope.DateFrom = from
	scope.DateTo = to

	if p := c.QueryParam("comparison_date_from"); p != "" {
		t, err := parseDate(p)
		if err != nil {
			return scope, fmt.Errorf("%w: comparison_date_from: %v", analytics.ErrInvalidScope, err)
		}
		scope.ComparisonDateFrom = &t
	}
	if p := c.QueryParam("comparison_date_to"); p != "" {
		t, err := parseDate(p)
		if err != nil {
			return scope, fmt.Errorf("%w: comparison_date_to: %v", analytics.ErrInvalidScope, err)
		}
		scope.ComparisonDateTo = &t
	}

	ids, err := parsePharmacyIDs(c.QueryParam("pharmacy"))
	if err != nil {
		return scope, fmt.Errorf("%w: %v", analytics.ErrInvalidScope, err)
	}
	scope.PharmacyIDs = ids

	return scope, scope.Validate()
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func parseLimit(c echo.Context) int {
	if p := c.QueryParam("limit"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			return n
		}
	}
	return defaultProductLimit
}

// analysisError maps engine errors onto HTTP statuses. Upstream failures keep
// the cause in the server log, not the response.
func analysisError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, analytics.ErrInvalidScope), errors.Is(err, taxonomy.ErrInvalidSegment):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: err.Error()})
	case errors.Is(err, taxonomy.ErrSegmentNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Success: false, Message: err.Error()})
	default:
		log.Printf("Analysis failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Message: "analysis failed"})
	}
}

// analyze runs the shared analysis flow for a resolved segment.
func (h *AnalysisHandler) analyze(c echo.Context, seg taxonomy.Segment) error {
	scope, err := parseScope(c)
	if err != nil {
		return analysisError(c, err)
	}

	result, err := h.engine.AnalyzeSegment(c.Request().Context(), seg, scope, c.QueryParam("lab"), parseLimit(c))
	if err != nil {
		return analysisError(c, err)
	}

	if len(result.MarketShareByLab) > maxLabRows {
		result.MarketShareByLab = result.MarketShareByLab[:maxLabRows]
	}

	return c.JSON(http.StatusOK, result)
}

// AnalyzeUniverse handles GET /api/analysis/universe/:universe
func (h *AnalysisHandler) AnalyzeUniverse(c echo.Context) error {
	return h.analyze(c, taxonomy.Universe(c.Param("universe")))
}

// AnalyzeCategory handles GET /api/analysis/category/:universe/:category
func (h *AnalysisHandler) AnalyzeCategory(c echo.Context) error {
	return h.analyze(c, taxonomy.Category(c.Param("universe"), c.Param("category")))
}

// AnalyzeFamily handles GET /api/analysis/family/:universe/:category/:family
func (h *AnalysisHandler) AnalyzeFamily(c echo.Context) error {
	return h.analyze(c, taxonomy.Family(c.Param("universe"), c.Param("category"), c.Param("family")))
}

// AnalyzeSegment handles GET /api/analysis/segment/:id
// Accepts the legacy delimited segment form ("universe_category_family").
func (h *AnalysisHandler) AnalyzeSegment(c echo.Context) error {
	seg, err := taxonomy.ParseFreeSegment(c.Param("id"))
	if err != nil {
		return analysisError(c, err)
	}
	return h.analyze(c, seg)
}

// AnalyzeEvolution handles GET /api/analysis/evolution
// Query params: segment (legacy delimited form) plus the shared scope params;
// the comparison range is required here.
func (h *AnalysisHandler) AnalyzeEvolution(c echo.Context) error {
	seg, err := taxonomy.ParseFreeSegment(c.QueryParam("segment"))
	if err != nil {
		return analysisError(c, err)
	}

	scope, err := parseScope(c)
	if err != nil {
		return analysisError(c, err)
	}

	report, err := h.engine.AnalyzeEvolution(c.Request().Context(), seg, scope)
	if err != nil {
		return analysisError(c, err)
	}

	return c.JSON(http.StatusOK, report)
}
