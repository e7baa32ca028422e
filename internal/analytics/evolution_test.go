package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
)

func evoProduct(id int64, revenue int64) ProductAggregate {
	return ProductAggregate{ProductID: id, Name: "P", Revenue: dec(revenue), Margin: dec(revenue / 10)}
}

func bucketOf(report EvolutionReport, id int64) (Bucket, EvolutionProduct, bool) {
	buckets := map[Bucket][]EvolutionProduct{
		BucketStrongDecrease: report.StrongDecrease,
		BucketSlightDecrease: report.SlightDecrease,
		BucketStable:         report.Stable,
		BucketSlightIncrease: report.SlightIncrease,
		BucketStrongIncrease: report.StrongIncrease,
	}
	for name, products := range buckets {
		for _, p := range products {
			if p.ProductID == id {
				return name, p, true
			}
		}
	}
	return "", EvolutionProduct{}, false
}

func TestClassifyEvolutionBuckets(t *testing.T) {
	tests := []struct {
		name     string
		previous int64
		current  int64
		wantPct  decimal.Decimal
		want     Bucket
	}{
		{"strong increase", 100, 120, decimal.NewFromInt(20), BucketStrongIncrease},
		{"slight decrease", 100, 94, decimal.NewFromInt(-6), BucketSlightDecrease},
		{"strong decrease", 100, 80, decimal.NewFromInt(-20), BucketStrongDecrease},
		{"slight increase", 100, 110, decimal.NewFromInt(10), BucketSlightIncrease},
		{"stable", 100, 104, decimal.NewFromInt(4), BucketStable},
		{"upper stable boundary", 100, 105, decimal.NewFromInt(5), BucketStable},
		{"lower stable boundary", 100, 95, decimal.NewFromInt(-5), BucketStable},
		{"slight increase boundary", 100, 115, decimal.NewFromInt(15), BucketSlightIncrease},
		{"slight decrease boundary", 100, 85, decimal.NewFromInt(-15), BucketSlightDecrease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ClassifyEvolution(
				[]ProductAggregate{evoProduct(1, tt.current)},
				[]ProductAggregate{evoProduct(1, tt.previous)},
			)
			bucket, p, ok := bucketOf(report, 1)
			if !ok {
				t.Fatal("product missing from all buckets")
			}
			if bucket != tt.want {
				t.Errorf("bucket = %s, want %s", bucket, tt.want)
			}
			if !p.EvolutionPct.Equal(tt.wantPct) {
				t.Errorf("evolution = %s, want %s", p.EvolutionPct, tt.wantPct)
			}
		})
	}
}

func TestClassifyEvolutionNewProductIsStable(t *testing.T) {
	// No prior-period sales: 0% by convention, not an infinite increase.
	report := ClassifyEvolution([]ProductAggregate{evoProduct(1, 500)}, nil)

	bucket, p, ok := bucketOf(report, 1)
	if !ok {
		t.Fatal("new product missing from all buckets")
	}
	if bucket != BucketStable {
		t.Errorf("bucket = %s, want stable", bucket)
	}
	if !p.EvolutionPct.IsZero() {
		t.Errorf("evolution = %s, want 0", p.EvolutionPct)
	}
	if !p.PreviousRevenue.IsZero() {
		t.Errorf("previous revenue = %s, want 0", p.PreviousRevenue)
	}
}

func TestClassifyEvolutionDisappearedProduct(t *testing.T) {
	report := ClassifyEvolution(nil, []ProductAggregate{evoProduct(1, 500)})

	bucket, p, ok := bucketOf(report, 1)
	if !ok {
		t.Fatal("disappeared product missing from all buckets")
	}
	if bucket != BucketStrongDecrease {
		t.Errorf("bucket = %s, want strongDecrease", bucket)
	}
	if !p.EvolutionPct.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("evolution = %s, want -100", p.EvolutionPct)
	}
}

func TestClassifyEvolutionExcludesZeroBoth(t *testing.T) {
	report := ClassifyEvolution(
		[]ProductAggregate{evoProduct(1, 0)},
		[]ProductAggregate{evoProduct(1, 0)},
	)
	if _, _, ok := bucketOf(report, 1); ok {
		t.Error("zero-both product must be excluded from all buckets")
	}
	if !report.Global.CurrentPeriodRevenue.IsZero() {
		t.Errorf("global current revenue = %s, want 0", report.Global.CurrentPeriodRevenue)
	}
}

func TestClassifyEvolutionPartitionsExactlyOnce(t *testing.T) {
	current := []ProductAggregate{
		evoProduct(1, 120), evoProduct(2, 94), evoProduct(3, 80),
		evoProduct(4, 500), evoProduct(5, 0),
	}
	previous := []ProductAggregate{
		evoProduct(1, 100), evoProduct(2, 100), evoProduct(3, 100),
		evoProduct(6, 200),
	}

	report := ClassifyEvolution(current, previous)

	total := len(report.StrongDecrease) + len(report.SlightDecrease) + len(report.Stable) +
		len(report.SlightIncrease) + len(report.StrongIncrease)
	// Products 1,2,3 in both, 4 new, 6 gone; 5 has zero revenue in its only period.
	if total != 5 {
		t.Fatalf("bucketed products = %d, want 5", total)
	}
	for _, id := range []int64{1, 2, 3, 4, 6} {
		if _, _, ok := bucketOf(report, id); !ok {
			t.Errorf("product %d missing from buckets", id)
		}
	}
}

func TestClassifyEvolutionSortOrders(t *testing.T) {
	current := []ProductAggregate{
		evoProduct(1, 50),  // -50%
		evoProduct(2, 70),  // -30%
		evoProduct(3, 150), // +50%
		evoProduct(4, 130), // +30%
		evoProduct(5, 104), // +4%
		evoProduct(6, 99),  // -1%
	}
	previous := []ProductAggregate{
		evoProduct(1, 100), evoProduct(2, 100), evoProduct(3, 100),
		evoProduct(4, 100), evoProduct(5, 100), evoProduct(6, 100),
	}

	report := ClassifyEvolution(current, previous)

	// Decreasing buckets: most negative first.
	if len(report.StrongDecrease) != 2 || report.StrongDecrease[0].ProductID != 1 {
		t.Errorf("strongDecrease order = %+v, want product 1 first", report.StrongDecrease)
	}
	// Increasing buckets: most positive first.
	if len(report.StrongIncrease) != 2 || report.StrongIncrease[0].ProductID != 3 {
		t.Errorf("strongIncrease order = %+v, want product 3 first", report.StrongIncrease)
	}
	// Stable: absolute evolution ascending.
	if len(report.Stable) != 2 || report.Stable[0].ProductID != 6 {
		t.Errorf("stable order = %+v, want product 6 first", report.Stable)
	}
}

func TestClassifyEvolutionGlobal(t *testing.T) {
	current := []ProductAggregate{
		{ProductID: 1, Revenue: dec(120), Margin: dec(30)},
		{ProductID: 2, Revenue: dec(80), Margin: dec(10)},
	}
	previous := []ProductAggregate{
		{ProductID: 1, Revenue: dec(100), Margin: dec(20)},
		{ProductID: 2, Revenue: dec(100), Margin: dec(20)},
	}

	report := ClassifyEvolution(current, previous)

	g := report.Global
	if !g.CurrentPeriodRevenue.Equal(dec(200)) || !g.PreviousPeriodRevenue.Equal(dec(200)) {
		t.Errorf("global revenue = %s / %s, want 200 / 200", g.CurrentPeriodRevenue, g.PreviousPeriodRevenue)
	}
	if !g.EvolutionPercentage.IsZero() {
		t.Errorf("global evolution = %s, want 0", g.EvolutionPercentage)
	}
	if !g.CurrentPeriodMargin.Equal(dec(40)) || !g.PreviousPeriodMargin.Equal(dec(40)) {
		t.Errorf("global margin = %s / %s, want 40 / 40", g.CurrentPeriodMargin, g.PreviousPeriodMargin)
	}
	if !g.MarginEvolutionPct.IsZero() {
		t.Errorf("global margin evolution = %s, want 0", g.MarginEvolutionPct)
	}
}
