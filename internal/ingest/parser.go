package ingest

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// buildColumnIndex creates a map from column name to array index.
func buildColumnIndex(columns []Column) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, col := range columns {
		idx[col.Name] = i
	}
	return idx
}

// getString safely extracts a string from row data.
func getString(row []interface{}, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprintf("%v", row[i])
}

// getBool safely extracts a boolean from row data.
func getBool(row []interface{}, idx map[string]int, col string) bool {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return false
	}
	switch v := row[i].(type) {
	case bool:
		return v
	case string:
		return v == "Y" || v == "true" || v == "1"
	case float64:
		return v != 0
	}
	return false
}

// getInt64 safely extracts an int64 from row data.
func getInt64(row []interface{}, idx map[string]int, col string) int64 {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return 0
	}
	switch v := row[i].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// getDecimal safely extracts a decimal from row data, zero on anything
// unparsable.
func getDecimal(row []interface{}, idx map[string]int, col string) decimal.Decimal {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return decimal.Zero
	}
	switch v := row[i].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

// getDate safely extracts a YYYY-MM-DD date from row data.
func getDate(row []interface{}, idx map[string]int, col string) (time.Time, bool) {
	s := getString(row, idx, col)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// getDatePtr is getDate for optional columns.
func getDatePtr(row []interface{}, idx map[string]int, col string) *time.Time {
	t, ok := getDate(row, idx, col)
	if !ok {
		return nil
	}
	return &t
}

// ParsePharmacies converts a feed response into pharmacy rows.
func ParsePharmacies(resp *Response) ([]PharmacyRow, error) {
	idx := buildColumnIndex(resp.Datatable.Columns)

	rows := make([]PharmacyRow, 0, len(resp.Datatable.Data))
	for _, raw := range resp.Datatable.Data {
		id := getInt64(raw, idx, "pharmacy_id")
		if id == 0 {
			log.Printf("Skipping pharmacy row without id: %v", raw)
			continue
		}
		rows = append(rows, PharmacyRow{
			ID:     id,
			Name:   getString(raw, idx, "name"),
			Area:   getString(raw, idx, "area"),
			Active: getBool(raw, idx, "active"),
		})
	}

	return rows, nil
}

// ParseCatalog converts a feed response into global product rows.
func ParseCatalog(resp *Response) ([]CatalogRow, error) {
	idx := buildColumnIndex(resp.Datatable.Columns)

	rows := make([]CatalogRow, 0, len(resp.Datatable.Data))
	for _, raw := range resp.Datatable.Data {
		code := getString(raw, idx, "code_13_ref")
		if code == "" {
			log.Printf("Skipping catalog row without code_13_ref: %v", raw)
			continue
		}
		rows = append(rows, CatalogRow{
			Code13Ref:   code,
			Name:        getString(raw, idx, "name"),
			Universe:    getString(raw, idx, "universe"),
			Category:    getString(raw, idx, "category"),
			Family:      getString(raw, idx, "family"),
			SubFamily:   getString(raw, idx, "sub_family"),
			BrandLab:    getString(raw, idx, "brand_lab"),
			LastUpdated: getDatePtr(raw, idx, "last_updated"),
		})
	}

	return rows, nil
}

// ParseSales converts a feed response into sale rows. Rows without a valid
// date are skipped, not fatal.
func ParseSales(resp *Response) ([]SaleRow, error) {
	idx := buildColumnIndex(resp.Datatable.Columns)

	rows := make([]SaleRow, 0, len(resp.Datatable.Data))
	for _, raw := range resp.Datatable.Data {
		date, ok := getDate(raw, idx, "date")
		if !ok {
			log.Printf("Skipping sale row without date: %v", raw)
			continue
		}
		code := getString(raw, idx, "code_13_ref")
		if code == "" {
			log.Printf("Skipping sale row without code_13_ref: %v", raw)
			continue
		}
		rows = append(rows, SaleRow{
			PharmacyID:  getInt64(raw, idx, "pharmacy_id"),
			Code13Ref:   code,
			ProductName: getString(raw, idx, "product_name"),
			Date:        date,
			Quantity:    getInt64(raw, idx, "quantity"),
			LastUpdated: getDatePtr(raw, idx, "last_updated"),
		})
	}

	return rows, nil
}

// ParseSnapshots converts a feed response into snapshot rows.
func ParseSnapshots(resp *Response) ([]SnapshotRow, error) {
	idx := buildColumnIndex(resp.Datatable.Columns)

	rows := make([]SnapshotRow, 0, len(resp.Datatable.Data))
	for _, raw := range resp.Datatable.Data {
		date, ok := getDate(raw, idx, "date")
		if !ok {
			log.Printf("Skipping snapshot row without date: %v", raw)
			continue
		}
		code := getString(raw, idx, "code_13_ref")
		if code == "" {
			log.Printf("Skipping snapshot row without code_13_ref: %v", raw)
			continue
		}
		rows = append(rows, SnapshotRow{
			PharmacyID:      getInt64(raw, idx, "pharmacy_id"),
			Code13Ref:       code,
			ProductName:     getString(raw, idx, "product_name"),
			Date:            date,
			Stock:           getInt64(raw, idx, "stock"),
			PriceWithTax:    getDecimal(raw, idx, "price_with_tax"),
			WeightedAvgCost: getDecimal(raw, idx, "weighted_average_price"),
			TaxRatePct:      getDecimal(raw, idx, "tax_percentage"),
			LastUpdated:     getDatePtr(raw, idx, "last_updated"),
		})
	}

	return rows, nil
}
