package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LabShare is one row of the market-share table.
type LabShare struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Revenue        decimal.Decimal `json:"total_revenue"`
	Quantity       int64           `json:"total_quantity"`
	Margin         decimal.Decimal `json:"total_margin"`
	ProductCount   int64           `json:"product_count"`
	Rank           int             `json:"rank"`
	MarketSharePct decimal.Decimal `json:"market_share"`
	VolumeSharePct decimal.Decimal `json:"volume_share"`
	MarginPct      decimal.Decimal `json:"margin_percentage"`
}

// RankMarketShare sorts laboratory aggregates by revenue descending, assigns
// ranks from 1, and enriches each row with revenue share, volume share, and
// margin percentage. Ties on revenue break by laboratory name ascending so the
// ranking is stable across calls.
//
// The result is never truncated here; callers cut to their own top-N.
func RankMarketShare(labs []LabAggregate) []LabShare {
	totalRevenue := decimal.Zero
	var totalQuantity int64
	for _, l := range labs {
		totalRevenue = totalRevenue.Add(l.Revenue)
		totalQuantity += l.Quantity
	}
	totalQuantityDec := decimal.NewFromInt(totalQuantity)

	out := make([]LabShare, 0, len(labs))
	for _, l := range labs {
		out = append(out, LabShare{
			ID:             l.Laboratory,
			Name:           l.Laboratory,
			Revenue:        l.Revenue,
			Quantity:       l.Quantity,
			Margin:         l.Margin,
			ProductCount:   l.ProductCount,
			MarketSharePct: pctOf(l.Revenue, totalRevenue),
			VolumeSharePct: pctOf(decimal.NewFromInt(l.Quantity), totalQuantityDec),
			MarginPct:      pctOf(l.Margin, l.Revenue),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Rank = i + 1
	}

	return out
}
