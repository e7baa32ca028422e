package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phardev/phardata/internal/analytics"
	"github.com/phardev/phardata/internal/ingest"
	"github.com/phardev/phardata/internal/models"
	"github.com/phardev/phardata/internal/taxonomy"
)

// Repository handles database operations for the analytics engine and the
// feed ingestion.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// queryFilter accumulates WHERE clauses and their positional args. Each
// clause is a fmt verb template whose %d receives the arg's position.
type queryFilter struct {
	clauses []string
	args    []any
}

func (f *queryFilter) add(clause string, arg any) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, fmt.Sprintf(clause, len(f.args)))
}

func (f *queryFilter) where() string {
	return strings.Join(f.clauses, " AND ")
}

// salesFilter builds the per-request predicate: inclusive date range,
// optional pharmacy set (empty = all pharmacies), and the segment's taxonomy
// levels. Arg order: range start is always $1, range end always $2.
func salesFilter(seg taxonomy.Segment, pharmacyIDs []int64, r analytics.Range) *queryFilter {
	f := &queryFilter{}
	f.add("s.date >= $%d", r.From)
	f.add("s.date <= $%d", r.To)
	if len(pharmacyIDs) > 0 {
		f.add("ip.pharmacy_id = ANY($%d)", pharmacyIDs)
	}
	addSegmentFilter(f, seg)
	return f
}

func addSegmentFilter(f *queryFilter, seg taxonomy.Segment) {
	f.add("gp.universe = $%d", seg.Universe)
	if seg.Kind >= taxonomy.KindCategory {
		f.add("gp.category = $%d", seg.Category)
	}
	if seg.Kind >= taxonomy.KindFamily {
		f.add("gp.family = $%d", seg.Family)
	}
	if seg.Kind >= taxonomy.KindSubFamily {
		f.add("gp.sub_family = $%d", seg.SubFamily)
	}
}

const salesJoin = `
	FROM sales s
	JOIN internal_products ip ON ip.id = s.product_id
	JOIN global_products gp ON gp.code_13_ref = ip.code_13_ref
	JOIN inventory_snapshots snap ON snap.product_id = s.product_id AND snap.date = s.date
`

// Revenue and margin expressions used by every aggregation path. Margin is
// the canonical formula: revenue minus tax-loaded cost of goods.
const (
	revenueExpr = `COALESCE(SUM(s.quantity * snap.price_with_tax), 0)`
	marginExpr  = `COALESCE(SUM(s.quantity * snap.price_with_tax)
		- SUM(s.quantity * snap.weighted_average_price * (1 + snap.tax_percentage / 100)), 0)`
)

// SegmentTotals aggregates the whole segment into one row. Zero matching
// facts yields zeroes, not an error.
func (r *Repository) SegmentTotals(ctx context.Context, seg taxonomy.Segment, pharmacyIDs []int64, rng analytics.Range) (analytics.Totals, error) {
	f := salesFilter(seg, pharmacyIDs, rng)
	query := `
		SELECT ` + revenueExpr + ` AS revenue,
		       ` + marginExpr + ` AS margin,
		       COALESCE(SUM(s.quantity), 0)::bigint AS quantity,
		       COUNT(DISTINCT ip.code_13_ref) AS product_count
	` + salesJoin + `
		WHERE ` + f.where()

	var t analytics.Totals
	err := r.pool.QueryRow(ctx, query, f.args...).Scan(&t.Revenue, &t.Margin, &t.Quantity, &t.ProductCount)
	if err != nil {
		return analytics.Totals{}, fmt.Errorf("querying segment totals: %w", err)
	}
	return t, nil
}

// AggregateByLab aggregates the segment per laboratory.
func (r *Repository) AggregateByLab(ctx context.Context, seg taxonomy.Segment, pharmacyIDs []int64, rng analytics.Range) ([]analytics.LabAggregate, error) {
	f := salesFilter(seg, pharmacyIDs, rng)
	query := `
		SELECT gp.brand_lab,
		       ` + revenueExpr + ` AS revenue,
		       ` + marginExpr + ` AS margin,
		       COALESCE(SUM(s.quantity), 0)::bigint AS quantity,
		       COUNT(DISTINCT ip.code_13_ref) AS product_count
	` + salesJoin + `
		WHERE ` + f.where() + `
		GROUP BY gp.brand_lab
		ORDER BY revenue DESC, gp.brand_lab`

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("querying lab aggregates: %w", err)
	}
	defer rows.Close()

	var labs []analytics.LabAggregate
	for rows.Next() {
		var l analytics.LabAggregate
		if err := rows.Scan(&l.Laboratory, &l.Revenue, &l.Margin, &l.Quantity, &l.ProductCount); err != nil {
			return nil, fmt.Errorf("scanning lab aggregate: %w", err)
		}
		labs = append(labs, l)
	}
	return labs, rows.Err()
}

// AggregateByProduct aggregates the segment per product. The display name
// falls back to the pharmacy-local name when the reference name is null or
// the "Default Name" sentinel. Stock is the most recent snapshot at or before
// the range end ($2), not the most recent overall, so comparison-period stock
// stays correct.
func (r *Repository) AggregateByProduct(ctx context.Context, seg taxonomy.Segment, pharmacyIDs []int64, rng analytics.Range) ([]analytics.ProductAggregate, error) {
	f := salesFilter(seg, pharmacyIDs, rng)
	query := `
		SELECT ip.id,
		       COALESCE(NULLIF(gp.name, 'Default Name'), ip.name) AS display_name,
		       ip.code_13_ref,
		       gp.brand_lab,
		       ` + revenueExpr + ` AS revenue,
		       ` + marginExpr + ` AS margin,
		       COALESCE(SUM(s.quantity), 0)::bigint AS quantity,
		       COALESCE(latest.stock, 0) AS current_stock
	` + salesJoin + `
		LEFT JOIN LATERAL (
			SELECT snap2.stock
			FROM inventory_snapshots snap2
			WHERE snap2.product_id = s.product_id AND snap2.date <= $2
			ORDER BY snap2.date DESC
			LIMIT 1
		) latest ON TRUE
		WHERE ` + f.where() + `
		GROUP BY ip.id, display_name, ip.code_13_ref, gp.brand_lab, latest.stock
		ORDER BY revenue DESC, ip.id`

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("querying product aggregates: %w", err)
	}
	defer rows.Close()

	var products []analytics.ProductAggregate
	for rows.Next() {
		var p analytics.ProductAggregate
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Code13Ref, &p.BrandLab, &p.Revenue, &p.Margin, &p.Quantity, &p.CurrentStock); err != nil {
			return nil, fmt.Errorf("scanning product aggregate: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UniverseForCategory returns the universe the reference table most often
// holds for a category, or "" when the category is unknown.
func (r *Repository) UniverseForCategory(ctx context.Context, category string) (string, error) {
	var universe string
	err := r.pool.QueryRow(ctx, `
		SELECT universe FROM global_products
		WHERE category = $1 AND universe <> ''
		GROUP BY universe
		ORDER BY COUNT(*) DESC, universe
		LIMIT 1
	`, category).Scan(&universe)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying universe for category: %w", err)
	}
	return universe, nil
}

// CountSegmentProducts returns how many reference products fall inside the
// segment.
func (r *Repository) CountSegmentProducts(ctx context.Context, seg taxonomy.Segment) (int64, error) {
	f := &queryFilter{}
	addSegmentFilter(f, seg)

	var count int64
	query := `SELECT COUNT(*) FROM global_products gp WHERE ` + f.where()
	if err := r.pool.QueryRow(ctx, query, f.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting segment products: %w", err)
	}
	return count, nil
}

// UpsertPharmacies inserts or updates pharmacies from feed data. Returns the
// number of rows affected.
func (r *Repository) UpsertPharmacies(ctx context.Context, rows []ingest.PharmacyRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range rows {
		batch.Queue(`
			INSERT INTO pharmacies (id, name, area, active, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				area = EXCLUDED.area,
				active = EXCLUDED.active,
				updated_at = NOW()
		`, p.ID, p.Name, p.Area, p.Active)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	count := 0
	for range rows {
		if _, err := br.Exec(); err != nil {
			return count, fmt.Errorf("upserting pharmacy: %w", err)
		}
		count++
	}
	return count, nil
}

// UpsertCatalog inserts or updates the global product reference.
func (r *Repository) UpsertCatalog(ctx context.Context, rows []ingest.CatalogRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO global_products (
				code_13_ref, name, universe, category, family, sub_family,
				brand_lab, last_updated, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (code_13_ref) DO UPDATE SET
				name = EXCLUDED.name,
				universe = EXCLUDED.universe,
				category = EXCLUDED.category,
				family = EXCLUDED.family,
				sub_family = EXCLUDED.sub_family,
				brand_lab = EXCLUDED.brand_lab,
				last_updated = EXCLUDED.last_updated,
				updated_at = NOW()
		`, row.Code13Ref, row.Name, row.Universe, row.Category, row.Family, row.SubFamily,
			row.BrandLab, row.LastUpdated)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	count := 0
	for range rows {
		if _, err := br.Exec(); err != nil {
			return count, fmt.Errorf("upserting global product: %w", err)
		}
		count++
	}
	return count, nil
}

// UpsertSales inserts or updates sales facts. Each feed row is keyed by
// (pharmacy, code_13_ref, date); the pharmacy-local product row is created on
// first sight.
func (r *Repository) UpsertSales(ctx context.Context, rows []ingest.SaleRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO internal_products (pharmacy_id, name, code_13_ref)
			VALUES ($1, $2, $3)
			ON CONFLICT (pharmacy_id, code_13_ref) DO UPDATE SET
				name = EXCLUDED.name,
				updated_at = NOW()
		`, row.PharmacyID, row.ProductName, row.Code13Ref)
		batch.Queue(`
			INSERT INTO sales (product_id, date, quantity, last_updated)
			SELECT id, $3, $4, $5 FROM internal_products
			WHERE pharmacy_id = $1 AND code_13_ref = $2
			ON CONFLICT (product_id, date) DO UPDATE SET
				quantity = EXCLUDED.quantity,
				last_updated = EXCLUDED.last_updated
		`, row.PharmacyID, row.Code13Ref, row.Date, row.Quantity, row.LastUpdated)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	count := 0
	for range rows {
		if _, err := br.Exec(); err != nil {
			return count, fmt.Errorf("upserting product for sale: %w", err)
		}
		if _, err := br.Exec(); err != nil {
			return count, fmt.Errorf("upserting sale: %w", err)
		}
		count++
	}
	return count, nil
}

// UpsertSnapshots inserts or updates inventory snapshots.
func (r *Repository) UpsertSnapshots(ctx context.Context, rows []ingest.SnapshotRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO internal_products (pharmacy_id, name, code_13_ref)
			VALUES ($1, $2, $3)
			ON CONFLICT (pharmacy_id, code_13_ref) DO NOTHING
		`, row.PharmacyID, row.ProductName, row.Code13Ref)
		batch.Queue(`
			INSERT INTO inventory_snapshots (
				product_id, date, stock, price_with_tax,
				weighted_average_price, tax_percentage, last_updated
			)
			SELECT id, $3, $4, $5, $6, $7, $8 FROM internal_products
			WHERE pharmacy_id = $1 AND code_13_ref = $2
			ON CONFLICT (product_id, date) DO UPDATE SET
				stock = EXCLUDED.stock,
				price_with_tax = EXCLUDED.price_with_tax,
				weighted_average_price = EXCLUDED.weighted_average_price,
				tax_percentage = EXCLUDED.tax_percentage,
				last_updated = EXCLUDED.last_updated
		`, row.PharmacyID, row.Code13Ref, row.Date, row.Stock,
			row.PriceWithTax, row.WeightedAvgCost, row.TaxRatePct, row.LastUpdated)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	count := 0
	for range rows {
		if _, err := br.Exec(); err != nil {
			return count, fmt.Errorf("upserting product for snapshot: %w", err)
		}
		if _, err := br.Exec(); err != nil {
			return count, fmt.Errorf("upserting snapshot: %w", err)
		}
		count++
	}
	return count, nil
}

// GetLastFeedUpdate returns the most recent last_updated timestamp for a
// table, for incremental feed fetches.
func (r *Repository) GetLastFeedUpdate(ctx context.Context, table string) (time.Time, error) {
	var query string
	switch table {
	case "global_products":
		query = "SELECT COALESCE(MAX(last_updated), '1970-01-01'::timestamptz) FROM global_products"
	case "sales":
		query = "SELECT COALESCE(MAX(last_updated), '1970-01-01'::timestamptz) FROM sales"
	case "inventory_snapshots":
		query = "SELECT COALESCE(MAX(last_updated), '1970-01-01'::timestamptz) FROM inventory_snapshots"
	default:
		return time.Time{}, fmt.Errorf("unknown table: %s", table)
	}

	var lastUpdate time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&lastUpdate); err != nil {
		return time.Time{}, fmt.Errorf("querying last update: %w", err)
	}
	return lastUpdate, nil
}

// ListPharmacyIDs returns all active pharmacy IDs.
func (r *Repository) ListPharmacyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM pharmacies WHERE active = true ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPharmacies returns all pharmacies, active first, for the dashboard's
// scope picker.
func (r *Repository) ListPharmacies(ctx context.Context) ([]models.Pharmacy, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, area, active, created_at, updated_at
		FROM pharmacies
		ORDER BY active DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pharmacies: %w", err)
	}
	defer rows.Close()

	var pharmacies []models.Pharmacy
	for rows.Next() {
		var p models.Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Area, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning pharmacy: %w", err)
		}
		pharmacies = append(pharmacies, p)
	}
	return pharmacies, rows.Err()
}

// SearchGlobalProducts searches the reference catalog by name or EAN13 code.
func (r *Repository) SearchGlobalProducts(ctx context.Context, query string, limit int) ([]models.GlobalProduct, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT code_13_ref, COALESCE(name, ''), universe, category, family, sub_family, brand_lab, created_at, updated_at
		FROM global_products
		WHERE name ILIKE '%' || $1 || '%' OR code_13_ref LIKE $1 || '%'
		ORDER BY name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer rows.Close()

	var products []models.GlobalProduct
	for rows.Next() {
		var p models.GlobalProduct
		if err := rows.Scan(&p.Code13Ref, &p.Name, &p.Universe, &p.Category, &p.Family,
			&p.SubFamily, &p.BrandLab, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// PharmacyExists checks if a pharmacy exists in the database.
func (r *Repository) PharmacyExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pharmacies WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// GetPharmacyCount returns the number of pharmacies in the database.
func (r *Repository) GetPharmacyCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pharmacies").Scan(&count)
	return count, err
}

// GetCatalogCount returns the number of global reference products.
func (r *Repository) GetCatalogCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM global_products").Scan(&count)
	return count, err
}

// GetSaleCount returns the number of sales facts.
func (r *Repository) GetSaleCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales").Scan(&count)
	return count, err
}

// GetSnapshotCount returns the number of inventory snapshots.
func (r *Repository) GetSnapshotCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM inventory_snapshots").Scan(&count)
	return count, err
}
