package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/phardev/phardata/internal/db"
	"github.com/phardev/phardata/internal/ingest"
)

// IngestHandler handles feed ingestion endpoints.
type IngestHandler struct {
	client *ingest.Client
	repo   *db.Repository
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(client *ingest.Client, repo *db.Repository) *IngestHandler {
	return &IngestHandler{
		client: client,
		repo:   repo,
	}
}

// IngestResponse is the JSON response for ingestion endpoints.
type IngestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// parsePharmacyIDs parses a comma-separated list of pharmacy IDs.
func parsePharmacyIDs(param string) ([]int64, error) {
	if param == "" {
		return nil, nil
	}
	parts := strings.Split(param, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid pharmacy id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IngestPharmacies handles POST /admin/ingest/pharmacies
// Refreshes the pharmacy list from the feed.
// Query params:
// - pharmacy: comma-separated pharmacy IDs (optional, defaults to all)
func (h *IngestHandler) IngestPharmacies(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()
	runID := uuid.New().String()

	ids, err := parsePharmacyIDs(c.QueryParam("pharmacy"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, IngestResponse{
			Success: false,
			Message: err.Error(),
			RunID:   runID,
		})
	}

	if len(ids) > 0 {
		log.Printf("[run %s] Starting pharmacy ingestion for: %v", runID, ids)
	} else {
		log.Printf("[run %s] Starting pharmacy ingestion (all pharmacies)...", runID)
	}

	rows, err := h.client.FetchPharmacies(ctx, ids)
	if err != nil {
		log.Printf("[run %s] Error fetching pharmacies: %v", runID, err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to fetch pharmacies: %v", err),
			RunID:   runID,
		})
	}

	log.Printf("[run %s] Fetched %d pharmacies from feed", runID, len(rows))

	count, err := h.repo.UpsertPharmacies(ctx, rows)
	if err != nil {
		log.Printf("[run %s] Error upserting pharmacies: %v", runID, err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to upsert pharmacies: %v", err),
			RunID:   runID,
		})
	}

	elapsed := time.Since(start)
	log.Printf("[run %s] Pharmacy ingestion complete: %d pharmacies in %v", runID, count, elapsed)

	return c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully ingested %d pharmacies", count),
		Count:   count,
		Elapsed: elapsed.String(),
		RunID:   runID,
	})
}

// IngestCatalog handles POST /admin/ingest/catalog
// Refreshes the global product reference. Query params:
// - full: if "true", fetch the whole catalog (default: incremental)
func (h *IngestHandler) IngestCatalog(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()
	runID := uuid.New().String()

	fullFetch := c.QueryParam("full") == "true"

	var since time.Time
	if !fullFetch {
		since, _ = h.repo.GetLastFeedUpdate(ctx, "global_products")
		log.Printf("[run %s] Incremental catalog fetch since %v", runID, since)
	} else {
		log.Printf("[run %s] Full catalog fetch...", runID)
	}

	rows, err := h.client.FetchCatalog(ctx, since)
	if err != nil {
		log.Printf("[run %s] Error fetching catalog: %v", runID, err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to fetch catalog: %v", err),
			RunID:   runID,
		})
	}

	log.Printf("[run %s] Fetched %d catalog rows", runID, len(rows))

	count, err := h.repo.UpsertCatalog(ctx, rows)
	if err != nil {
		log.Printf("[run %s] Error upserting catalog: %v", runID, err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to upsert catalog: %v", err),
			RunID:   runID,
		})
	}

	elapsed := time.Since(start)
	log.Printf("[run %s] Catalog ingestion complete: %d products in %v", runID, count, elapsed)

	return c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully ingested %d reference products", count),
		Count:   count,
		Elapsed: elapsed.String(),
		RunID:   runID,
	})
}

// IngestSales handles POST /admin/ingest/sales
// Fetches sell-out facts. Query params:
// - pharmacy: comma-separated pharmacy IDs (optional, defaults to all known pharmacies)
// - full: if "true", fetch all history (default: incremental)
func (h *IngestHandler) IngestSales(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()
	runID := uuid.New().String()

	ids, err := parsePharmacyIDs(c.QueryParam("pharmacy"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, IngestResponse{
			Success: false,
			Message: err.Error(),
			RunID:   runID,
		})
	}
	if len(ids) == 0 {
		// Default to all pharmacies in our database
		ids, err = h.repo.ListPharmacyIDs(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, IngestResponse{
				Success: false,
				Message: fmt.Sprintf("Failed to list pharmacies: %v", err),
				RunID:   runID,
			})
		}
	}

	if len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, IngestResponse{
			Success: false,
			Message: "No pharmacies in database. Run /admin/ingest/pharmacies first.",
			RunID:   runID,
		})
	}

	fullFetch := c.QueryParam("full") == "true"

	var since time.Time
	if !fullFetch {
		since, _ = h.repo.GetLastFeedUpdate(ctx, "sales")
		log.Printf("[run %s] Incremental sales fetch since %v", runID, since)
	}

	log.Printf("[run %s] Starting sales ingestion (pharmacies: %d, full: %v)...", runID, len(ids), fullFetch)

	rows, err := h.client.FetchSales(ctx, ids, since)
	if err != nil {
		log.Printf("[run %s] Error fetching sales: %v", runID, err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to fetch sales: %v", err),
			RunID:   runID,
		})
	}

	log.Printf("[run %s] Fetched %d sale rows", runID, len(rows))

	validRows := h.filterKnownPharmacies(c, rows, runID)

	count, err := h.repo.UpsertSales(ctx, validRows)
	if err != nil {
		log.Printf("[run %s] Error upserting sales: %v", runID, err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to upsert sales: %v", err),
			RunID:   runID,
		})
	}

	elapsed := time.Since(start)
	log.Printf("[run %s] Sales ingestion complete: %d facts in %v", runID, count, elapsed)

	return c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully ingested %d sales", count),
		Count:   count,
		Elapsed: elapsed.String(),
		RunID:   runID,
	})
}

// filterKnownPharmacies drops feed rows for pharmacies we do not track. The
// feed can return rows for pharmacies that left the network.
func (h *IngestHandler) filterKnownPharmacies(c echo.Context, rows []ingest.SaleRow, runID string) []ingest.SaleRow {
	ctx := c.Request().Context()
	known := make(map[int64]bool)
	valid := make([]ingest.SaleRow, 0, len(rows))
	for _, row := range rows {
		exists, seen := known[row.PharmacyID]
		if !seen {
			var err error
			exists, err = h.repo.PharmacyExists(ctx, row.PharmacyID)
			if err != nil {
				log.Printf("[run %s] Error checking pharmacy %d: %v", runID, row.PharmacyID, err)
				continue
			}
			known[row.PharmacyID] = exists
		}
		if exists {
			valid = append(valid, row)
		}
	}
	if len(valid) < len(rows) {
		log.Printf("[run %s] Filtered to %d rows (some pharmacies not tracked)", runID, len(valid))
	}
	return valid
}

// IngestSnapshots handles POST /admin/ingest/snapshots
// Fetches stock/price snapshots. Query params:
// - pharmacy: comma-separated pharmacy IDs (optional, defaults to all known pharmacies)
// - full: if "true", fetch all history (default: incremental)
func (h *IngestHandler) IngestSnapshots(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()
	runID := uuid.New().String()

	ids, err := parsePharmacyIDs(c.QueryParam("pharmacy"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, IngestResponse{
			Success: false,
			Message: err.Error(),
			RunID:   runID,
		})
	}
	if len(ids) == 0 {
		ids, err = h.repo.ListPharmacyIDs(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, IngestResponse{
				Success: false,
				Message: fmt.Sprintf("Failed to list pharmacies: %v", err),
				RunID:   runID,
			})
		}
	}

	if len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, IngestResponse{
			Success: false,
			Message: "No pharmacies in database. Run /admin/ingest/pharmacies first.",
			RunID:   runID,
		})
	}

	fullFetch := c.QueryParam("full") == "true"

	var since time.Time
	if !fullFetch {
		since, _ = h.repo.GetLastFeedUpdate(ctx, "inventory_snapshots")
		log.Printf("[run %s] Incremental snapshot fetch since %v", runID, since)
	}

	log.Printf("[run %s] Starting snapshot ingestion (pharmacies: %d, full: %v)...", runID, len(ids), fullFetch)

	rows, err := h.client.FetchSnapshots(ctx, ids, since)
	if err != nil {
		log.Printf("[run %s] Error fetching snapshots: %v", runID, err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to fetch snapshots: %v", err),
			RunID:   runID,
		})
	}

	log.Printf("[run %s] Fetched %d snapshot rows", runID, len(rows))

	count, err := h.repo.UpsertSnapshots(ctx, rows)
	if err != nil {
		log.Printf("[run %s] Error upserting snapshots: %v", runID, err)
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to upsert snapshots: %v", err),
			RunID:   runID,
		})
	}

	elapsed := time.Since(start)
	log.Printf("[run %s] Snapshot ingestion complete: %d snapshots in %v", runID, count, elapsed)

	return c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully ingested %d snapshots", count),
		Count:   count,
		Elapsed: elapsed.String(),
		RunID:   runID,
	})
}

// IngestStatus handles GET /admin/ingest/status
// Returns current ingestion status and counts.
func (h *IngestHandler) IngestStatus(c echo.Context) error {
	ctx := c.Request().Context()

	pharmacyCount, _ := h.repo.GetPharmacyCount(ctx)
	catalogCount, _ := h.repo.GetCatalogCount(ctx)
	saleCount, _ := h.repo.GetSaleCount(ctx)
	snapshotCount, _ := h.repo.GetSnapshotCount(ctx)

	lastSaleUpdate, _ := h.repo.GetLastFeedUpdate(ctx, "sales")
	lastSnapshotUpdate, _ := h.repo.GetLastFeedUpdate(ctx, "inventory_snapshots")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"pharmacies": pharmacyCount,
		"products":   catalogCount,
		"sales":      saleCount,
		"snapshots":  snapshotCount,
		"last_sale_update":     lastSaleUpdate.Format("2006-01-02"),
		"last_snapshot_update": lastSnapshotUpdate.Format("2006-01-02"),
	})
}

// IngestTest handles GET /admin/ingest/test
// Makes a minimal feed call to verify the connection works.
func (h *IngestHandler) IngestTest(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()

	rows, err := h.client.FetchPharmacies(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Feed test failed: %v", err),
		})
	}

	elapsed := time.Since(start)

	resp := map[string]interface{}{
		"success":      true,
		"message":      "Feed connection successful",
		"rows_fetched": len(rows),
		"elapsed":      elapsed.String(),
	}
	if len(rows) > 0 {
		resp["sample"] = rows[0].Name
	}

	return c.JSON(http.StatusOK, resp)
}
