package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Bucket is one of the five movement classes a product can land in when two
// periods are compared.
type Bucket string

const (
	BucketStrongDecrease Bucket = "strongDecrease" // < -15%
	BucketSlightDecrease Bucket = "slightDecrease" // [-15%, -5%)
	BucketStable         Bucket = "stable"         // [-5%, 5%]
	BucketSlightIncrease Bucket = "slightIncrease" // (5%, 15%]
	BucketStrongIncrease Bucket = "strongIncrease" // > 15%
)

var (
	minusFifteen = decimal.NewFromInt(-15)
	minusFive    = decimal.NewFromInt(-5)
	five         = decimal.NewFromInt(5)
	fifteen      = decimal.NewFromInt(15)
)

// EvolutionProduct is one product's period-over-period comparison row.
type EvolutionProduct struct {
	ProductID       int64           `json:"id"`
	Name            string          `json:"name"`
	Code13Ref       string          `json:"code_13_ref"`
	BrandLab        string          `json:"brand_lab"`
	CurrentRevenue  decimal.Decimal `json:"current_revenue"`
	PreviousRevenue decimal.Decimal `json:"previous_revenue"`
	CurrentMargin   decimal.Decimal `json:"current_margin"`
	PreviousMargin  decimal.Decimal `json:"previous_margin"`
	EvolutionPct    decimal.Decimal `json:"evolution_percentage"`
}

// GlobalEvolution is the portfolio-level comparison across all eligible
// products, independent of bucket membership.
type GlobalEvolution struct {
	CurrentPeriodRevenue  decimal.Decimal `json:"currentPeriodRevenue"`
	PreviousPeriodRevenue decimal.Decimal `json:"previousPeriodRevenue"`
	EvolutionPercentage   decimal.Decimal `json:"evolutionPercentage"`
	CurrentPeriodMargin   decimal.Decimal `json:"currentPeriodMargin"`
	PreviousPeriodMargin  decimal.Decimal `json:"previousPeriodMargin"`
	MarginEvolutionPct    decimal.Decimal `json:"marginEvolutionPercentage"`
}

// EvolutionReport is the bucketized period-over-period comparison.
type EvolutionReport struct {
	StrongDecrease []EvolutionProduct `json:"strongDecrease"`
	SlightDecrease []EvolutionProduct `json:"slightDecrease"`
	Stable         []EvolutionProduct `json:"stable"`
	SlightIncrease []EvolutionProduct `json:"slightIncrease"`
	StrongIncrease []EvolutionProduct `json:"strongIncrease"`
	Global         GlobalEvolution    `json:"globalComparison"`
}

// evolutionPct applies the 0-on-missing-baseline rule: a product with no
// prior-period revenue reports 0% evolution rather than an infinite increase.
// A brand-new product therefore lands in the stable bucket by convention.
func evolutionPct(current, previous decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// ClassifyEvolution joins the two periods on product identity and assigns
// every eligible product to exactly one movement bucket by revenue evolution
// percentage. A product present in only one period counts 0 for the missing
// one; a product with zero revenue in both periods is excluded entirely.
//
// Sort order inside each bucket: decreasing buckets most-negative first,
// increasing buckets most-positive first, stable by absolute evolution
// ascending.
func ClassifyEvolution(current, previous []ProductAggregate) EvolutionReport {
	type pair struct {
		current  *ProductAggregate
		previous *ProductAggregate
	}

	joined := make(map[int64]*pair, len(current)+len(previous))
	order := make([]int64, 0, len(current)+len(previous))
	for i := range current {
		joined[current[i].ProductID] = &pair{current: &current[i]}
		order = append(order, current[i].ProductID)
	}
	for i := range previous {
		p, ok := joined[previous[i].ProductID]
		if !ok {
			p = &pair{}
			joined[previous[i].ProductID] = p
			order = append(order, previous[i].ProductID)
		}
		p.previous = &previous[i]
	}

	report := EvolutionReport{
		StrongDecrease: []EvolutionProduct{},
		SlightDecrease: []EvolutionProduct{},
		Stable:         []EvolutionProduct{},
		SlightIncrease: []EvolutionProduct{},
		StrongIncrease: []EvolutionProduct{},
	}

	for _, id := range order {
		p := joined[id]

		var curRevenue, curMargin decimal.Decimal
		var prevRevenue, prevMargin decimal.Decimal
		display := ProductAggregate{ProductID: id}
		if p.current != nil {
			curRevenue = p.current.Revenue
			curMargin = p.current.Margin
			display = *p.current
		}
		if p.previous != nil {
			prevRevenue = p.previous.Revenue
			prevMargin = p.previous.Margin
			if p.current == nil {
				display = *p.previous
			}
		}

		if curRevenue.IsZero() && prevRevenue.IsZero() {
			continue
		}

		row := EvolutionProduct{
			ProductID:       display.ProductID,
			Name:            display.Name,
			Code13Ref:       display.Code13Ref,
			BrandLab:        display.BrandLab,
			CurrentRevenue:  curRevenue,
			PreviousRevenue: prevRevenue,
			CurrentMargin:   curMargin,
			PreviousMargin:  prevMargin,
			EvolutionPct:    evolutionPct(curRevenue, prevRevenue),
		}

		report.Global.CurrentPeriodRevenue = report.Global.CurrentPeriodRevenue.Add(curRevenue)
		report.Global.PreviousPeriodRevenue = report.Global.PreviousPeriodRevenue.Add(prevRevenue)
		report.Global.CurrentPeriodMargin = report.Global.CurrentPeriodMargin.Add(curMargin)
		report.Global.PreviousPeriodMargin = report.Global.PreviousPeriodMargin.Add(prevMargin)

		switch bucketFor(row.EvolutionPct) {
		case BucketStrongDecrease:
			report.StrongDecrease = append(report.StrongDecrease, row)
		case BucketSlightDecrease:
			report.SlightDecrease = append(report.SlightDecrease, row)
		case BucketStable:
			report.Stable = append(report.Stable, row)
		case BucketSlightIncrease:
			report.SlightIncrease = append(report.SlightIncrease, row)
		case BucketStrongIncrease:
			report.StrongIncrease = append(report.StrongIncrease, row)
		}
	}

	sortAscending(report.StrongDecrease)
	sortAscending(report.SlightDecrease)
	sortAbsolute(report.Stable)
	sortDescending(report.SlightIncrease)
	sortDescending(report.StrongIncrease)

	report.Global.EvolutionPercentage = evolutionPct(report.Global.CurrentPeriodRevenue, report.Global.PreviousPeriodRevenue)
	report.Global.MarginEvolutionPct = evolutionPct(report.Global.CurrentPeriodMargin, report.Global.PreviousPeriodMargin)

	return report
}

func bucketFor(pct decimal.Decimal) Bucket {
	switch {
	case pct.LessThan(minusFifteen):
		return BucketStrongDecrease
	case pct.LessThan(minusFive):
		return BucketSlightDecrease
	case pct.LessThanOrEqual(five):
		return BucketStable
	case pct.LessThanOrEqual(fifteen):
		return BucketSlightIncrease
	default:
		return BucketStrongIncrease
	}
}

func sortAscending(products []EvolutionProduct) {
	sort.Slice(products, func(i, j int) bool {
		return products[i].EvolutionPct.LessThan(products[j].EvolutionPct)
	})
}

func sortDescending(products []EvolutionProduct) {
	sort.Slice(products, func(i, j int) bool {
		return products[i].EvolutionPct.GreaterThan(products[j].EvolutionPct)
	})
}

func sortAbsolute(products []EvolutionProduct) {
	sort.Slice(products, func(i, j int) bool {
		return products[i].EvolutionPct.Abs().LessThan(products[j].EvolutionPct.Abs())
	})
}
