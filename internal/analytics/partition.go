package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RankedProduct is one product row of a top-product list.
type RankedProduct struct {
	ProductID    int64           `json:"id"`
	Name         string          `json:"name"`
	Code13Ref    string          `json:"code_13_ref"`
	BrandLab     string          `json:"brand_lab"`
	Revenue      decimal.Decimal `json:"total_revenue"`
	Margin       decimal.Decimal `json:"total_margin"`
	Quantity     int64           `json:"total_quantity"`
	MarginPct    decimal.Decimal `json:"margin_percentage"`
	CurrentStock int64           `json:"current_stock"`
}

// TopProducts is the pair of partitioned top-product lists.
type TopProducts struct {
	Selected []RankedProduct `json:"selected"`
	Others   []RankedProduct `json:"others"`
}

// PartitionTopProducts splits product aggregates into the selected
// laboratory's top products and all other laboratories' top products, both
// ordered by revenue descending and truncated to limit.
//
// With no selected laboratory the view is "whole segment": Selected holds the
// global top limit×2 products and Others stays empty. Empty input yields empty
// lists, never an error.
func PartitionTopProducts(products []ProductAggregate, selectedLab string, limit int) TopProducts {
	if limit <= 0 {
		limit = 10
	}

	sorted := make([]ProductAggregate, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Revenue.Equal(sorted[j].Revenue) {
			return sorted[i].Revenue.GreaterThan(sorted[j].Revenue)
		}
		return sorted[i].ProductID < sorted[j].ProductID
	})

	result := TopProducts{
		Selected: []RankedProduct{},
		Others:   []RankedProduct{},
	}

	if selectedLab == "" {
		for _, p := range sorted {
			if len(result.Selected) >= limit*2 {
				break
			}
			result.Selected = append(result.Selected, rankedProduct(p))
		}
		return result
	}

	for _, p := range sorted {
		if p.BrandLab == selectedLab {
			if len(result.Selected) < limit {
				result.Selected = append(result.Selected, rankedProduct(p))
			}
		} else if len(result.Others) < limit {
			result.Others = append(result.Others, rankedProduct(p))
		}
		if len(result.Selected) >= limit && len(result.Others) >= limit {
			break
		}
	}

	return result
}

func rankedProduct(p ProductAggregate) RankedProduct {
	return RankedProduct{
		ProductID:    p.ProductID,
		Name:         p.Name,
		Code13Ref:    p.Code13Ref,
		BrandLab:     p.BrandLab,
		Revenue:      p.Revenue,
		Margin:       p.Margin,
		Quantity:     p.Quantity,
		MarginPct:    pctOf(p.Margin, p.Revenue),
		CurrentStock: p.CurrentStock,
	}
}
