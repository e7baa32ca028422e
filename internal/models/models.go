package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Pharmacy struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Area      string    `json:"area"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InternalProduct is a pharmacy-local product row. Display data and taxonomy
// live on the shared GlobalProduct reference, joined on Code13Ref.
type InternalProduct struct {
	ID         int64     `json:"id"`
	PharmacyID int64     `json:"pharmacy_id"`
	Name       string    `json:"name"`
	Code13Ref  string    `json:"code_13_ref"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GlobalProduct is the shared product reference keyed by the EAN13 code.
// Universe > Category > Family > SubFamily is the product taxonomy, broadest
// to narrowest. BrandLab is the manufacturer brand.
type GlobalProduct struct {
	Code13Ref   string     `json:"code_13_ref"`
	Name        string     `json:"name"`
	Universe    string     `json:"universe"`
	Category    string     `json:"category"`
	Family      string     `json:"family"`
	SubFamily   string     `json:"sub_family"`
	BrandLab    string     `json:"brand_lab"`
	LastUpdated *time.Time `json:"last_updated"` // From the feed API
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Sale struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Date      time.Time `json:"date"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// InventorySnapshot is one product's stock/price state on one date. Price and
// cost ride on the snapshot, not the sale: a sale's unit economics come from
// the snapshot of the same day.
type InventorySnapshot struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"product_id"`
	Date            time.Time       `json:"date"`
	Stock           int64           `json:"stock"`
	PriceWithTax    decimal.Decimal `json:"price_with_tax"`
	WeightedAvgCost decimal.Decimal `json:"weighted_average_price"`
	TaxRatePct      decimal.Decimal `json:"tax_percentage"`
	CreatedAt       time.Time       `json:"created_at"`
}
