package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
)

func feedResponse(columns []string, data [][]interface{}) *Response {
	cols := make([]Column, len(columns))
	for i, name := range columns {
		cols[i] = Column{Name: name, Type: "String"}
	}
	return &Response{Datatable: Datatable{Columns: cols, Data: data}}
}

func TestParsePharmacies(t *testing.T) {
	resp := feedResponse(
		[]string{"pharmacy_id", "name", "area", "active"},
		[][]interface{}{
			{float64(1), "Pharmacie du Centre", "Lyon", "Y"},
			{float64(2), "Pharmacie de la Gare", "Paris", false},
			{nil, "No ID", "Nowhere", true}, // skipped
		},
	)

	rows, err := ParsePharmacies(resp)
	if err != nil {
		t.Fatalf("ParsePharmacies error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].ID != 1 || rows[0].Name != "Pharmacie du Centre" || !rows[0].Active {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Active {
		t.Errorf("row 1 active = true, want false")
	}
}

func TestParseCatalog(t *testing.T) {
	resp := feedResponse(
		[]string{"code_13_ref", "name", "universe", "category", "family", "sub_family", "brand_lab", "last_updated"},
		[][]interface{}{
			{"3400930000001", "Shampooing Doux", "Hygiene", "Capillaire", "Shampooings", "", "LabA", "2024-03-01"},
			{nil, "Orphan", "Hygiene", "", "", "", "", nil}, // skipped: no code
		},
	)

	rows, err := ParseCatalog(resp)
	if err != nil {
		t.Fatalf("ParseCatalog error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Code13Ref != "3400930000001" || row.Universe != "Hygiene" || row.BrandLab != "LabA" {
		t.Errorf("row = %+v", row)
	}
	if row.LastUpdated == nil || row.LastUpdated.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("last updated = %v", row.LastUpdated)
	}
}

func TestParseSales(t *testing.T) {
	resp := feedResponse(
		[]string{"pharmacy_id", "code_13_ref", "product_name", "date", "quantity", "last_updated"},
		[][]interface{}{
			{float64(1), "3400930000001", "Shampooing Doux", "2024-01-15", float64(3), "2024-01-16"},
			{float64(1), "3400930000001", "Shampooing Doux", "not-a-date", float64(1), nil}, // skipped
			{float64(1), "", "Anonymous", "2024-01-15", float64(2), nil},                    // skipped
		},
	)

	rows, err := ParseSales(resp)
	if err != nil {
		t.Fatalf("ParseSales error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len = %d, want 1", len(rows))
	}
	if rows[0].Quantity != 3 || rows[0].PharmacyID != 1 {
		t.Errorf("row = %+v", rows[0])
	}
	if rows[0].Date.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("date = %v", rows[0].Date)
	}
}

func TestParseSnapshots(t *testing.T) {
	resp := feedResponse(
		[]string{"pharmacy_id", "code_13_ref", "product_name", "date", "stock", "price_with_tax", "weighted_average_price", "tax_percentage"},
		[][]interface{}{
			{float64(1), "3400930000001", "Shampooing Doux", "2024-01-15", float64(24), float64(9.90), "6.50", float64(20)},
		},
	)

	rows, err := ParseSnapshots(resp)
	if err != nil {
		t.Fatalf("ParseSnapshots error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Stock != 24 {
		t.Errorf("stock = %d, want 24", row.Stock)
	}
	if !row.PriceWithTax.Equal(decimal.NewFromFloat(9.90)) {
		t.Errorf("price = %s, want 9.90", row.PriceWithTax)
	}
	if !row.WeightedAvgCost.Equal(decimal.NewFromFloat(6.50)) {
		t.Errorf("cost = %s, want 6.50", row.WeightedAvgCost)
	}
	if !row.TaxRatePct.Equal(decimal.NewFromInt(20)) {
		t.Errorf("tax = %s, want 20", row.TaxRatePct)
	}
}

func TestGetDecimalBadValue(t *testing.T) {
	resp := feedResponse([]string{"price_with_tax"}, nil)
	idx := buildColumnIndex(resp.Datatable.Columns)

	if got := getDecimal([]interface{}{"oops"}, idx, "price_with_tax"); !got.IsZero() {
		t.Errorf("getDecimal on junk = %s, want 0", got)
	}
	if got := getDecimal([]interface{}{nil}, idx, "price_with_tax"); !got.IsZero() {
		t.Errorf("getDecimal on nil = %s, want 0", got)
	}
}
