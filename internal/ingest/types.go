package ingest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Response is the generic data-table envelope the feed API returns.
type Response struct {
	Datatable Datatable `json:"datatable"`
	Meta      Meta      `json:"meta"`
}

type Datatable struct {
	Data    [][]interface{} `json:"data"`
	Columns []Column        `json:"columns"`
}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Meta struct {
	NextCursorID *string `json:"next_cursor_id"`
}

// PharmacyRow is one pharmacy from the feed's pharmacies table.
type PharmacyRow struct {
	ID     int64
	Name   string
	Area   string
	Active bool
}

// CatalogRow is one global reference product from the feed's catalog table.
type CatalogRow struct {
	Code13Ref   string
	Name        string
	Universe    string
	Category    string
	Family      string
	SubFamily   string
	BrandLab    string
	LastUpdated *time.Time
}

// SaleRow is one (pharmacy, product, date) sell-out fact from the feed.
type SaleRow struct {
	PharmacyID  int64
	Code13Ref   string
	ProductName string
	Date        time.Time
	Quantity    int64
	LastUpdated *time.Time
}

// SnapshotRow is one (pharmacy, product, date) stock/price snapshot from the
// feed.
type SnapshotRow struct {
	PharmacyID      int64
	Code13Ref       string
	ProductName     string
	Date            time.Time
	Stock           int64
	PriceWithTax    decimal.Decimal
	WeightedAvgCost decimal.Decimal
	TaxRatePct      decimal.Decimal
	LastUpdated     *time.Time
}
