package analytics

import (
	"github.com/shopspring/decimal"
)

// Totals is the segment-wide aggregate (group-by nothing).
//
// Everywhere in this package:
//
//	revenue = Σ(quantity × priceWithTax)
//	margin  = revenue − Σ(quantity × cost × (1 + taxRate/100))
//
// The margin formula is canonical; every aggregation path uses this one
// definition.
type Totals struct {
	Revenue      decimal.Decimal `json:"total_revenue"`
	Margin       decimal.Decimal `json:"total_margin"`
	Quantity     int64           `json:"total_quantity"`
	ProductCount int64           `json:"product_count"`
}

// LabAggregate is one laboratory's raw aggregate inside a segment, before
// ranking and share enrichment.
type LabAggregate struct {
	Laboratory   string
	Revenue      decimal.Decimal
	Margin       decimal.Decimal
	Quantity     int64
	ProductCount int64
}

// ProductAggregate is one product's aggregate inside a segment and range.
// CurrentStock is the latest-snapshot value at or before the range end, not a
// sum over the range.
type ProductAggregate struct {
	ProductID    int64
	Name         string
	Code13Ref    string
	BrandLab     string
	Revenue      decimal.Decimal
	Margin       decimal.Decimal
	Quantity     int64
	CurrentStock int64
}

var hundred = decimal.NewFromInt(100)

// pctOf returns part/whole×100 rounded to 2 decimals, 0 when whole is 0.
func pctOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
