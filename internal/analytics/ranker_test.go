package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestRankMarketShare(t *testing.T) {
	labs := []LabAggregate{
		{Laboratory: "LabB", Revenue: dec(300), Margin: dec(60), Quantity: 30, ProductCount: 3},
		{Laboratory: "LabA", Revenue: dec(700), Margin: dec(140), Quantity: 70, ProductCount: 5},
	}

	ranked := RankMarketShare(labs)
	if len(ranked) != 2 {
		t.Fatalf("len = %d, want 2", len(ranked))
	}

	if ranked[0].Name != "LabA" || ranked[0].Rank != 1 {
		t.Errorf("top row = %s rank %d, want LabA rank 1", ranked[0].Name, ranked[0].Rank)
	}
	if got := ranked[0].MarketSharePct; !got.Equal(decimal.NewFromFloat(70)) {
		t.Errorf("LabA market share = %s, want 70", got)
	}
	if ranked[1].Name != "LabB" || ranked[1].Rank != 2 {
		t.Errorf("second row = %s rank %d, want LabB rank 2", ranked[1].Name, ranked[1].Rank)
	}
	if got := ranked[1].MarketSharePct; !got.Equal(decimal.NewFromFloat(30)) {
		t.Errorf("LabB market share = %s, want 30", got)
	}

	// Shares sum to 100 when at least one lab has revenue.
	sum := ranked[0].MarketSharePct.Add(ranked[1].MarketSharePct)
	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Σ market share = %s, want 100", sum)
	}

	// Volume share follows quantity, not revenue.
	if got := ranked[0].VolumeSharePct; !got.Equal(decimal.NewFromInt(70)) {
		t.Errorf("LabA volume share = %s, want 70", got)
	}

	// Margin percentage is per-lab margin over per-lab revenue.
	if got := ranked[0].MarginPct; !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("LabA margin pct = %s, want 20", got)
	}
}

func TestRankMarketShareZeroRevenue(t *testing.T) {
	labs := []LabAggregate{
		{Laboratory: "LabA", Revenue: decimal.Zero, Quantity: 0},
		{Laboratory: "LabB", Revenue: decimal.Zero, Quantity: 0},
	}

	ranked := RankMarketShare(labs)
	for _, l := range ranked {
		if !l.MarketSharePct.IsZero() {
			t.Errorf("%s market share = %s, want 0 on zero denominator", l.Name, l.MarketSharePct)
		}
		if !l.VolumeSharePct.IsZero() {
			t.Errorf("%s volume share = %s, want 0", l.Name, l.VolumeSharePct)
		}
		if !l.MarginPct.IsZero() {
			t.Errorf("%s margin pct = %s, want 0", l.Name, l.MarginPct)
		}
	}
}

func TestRankMarketShareTieBreak(t *testing.T) {
	labs := []LabAggregate{
		{Laboratory: "Zeta", Revenue: dec(500)},
		{Laboratory: "Alpha", Revenue: dec(500)},
	}

	ranked := RankMarketShare(labs)
	if ranked[0].Name != "Alpha" {
		t.Errorf("tie broke to %s, want Alpha first", ranked[0].Name)
	}
	if ranked[0].Rank != 1 || ranked[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", ranked[0].Rank, ranked[1].Rank)
	}
}

func TestRankMarketShareRounds(t *testing.T) {
	labs := []LabAggregate{
		{Laboratory: "A", Revenue: dec(1)},
		{Laboratory: "B", Revenue: dec(3)},
	}

	ranked := RankMarketShare(labs)
	// 1/4 = 25%, 3/4 = 75%; a third-ish split checks rounding instead.
	if got := ranked[1].MarketSharePct; !got.Equal(decimal.NewFromInt(25)) {
		t.Errorf("share = %s, want 25", got)
	}

	labs = []LabAggregate{
		{Laboratory: "A", Revenue: dec(1)},
		{Laboratory: "B", Revenue: dec(2)},
	}
	ranked = RankMarketShare(labs)
	if got := ranked[1].MarketSharePct; !got.Equal(decimal.NewFromFloat(33.33)) {
		t.Errorf("share = %s, want 33.33", got)
	}
}

func TestRankMarketShareEmpty(t *testing.T) {
	ranked := RankMarketShare(nil)
	if len(ranked) != 0 {
		t.Errorf("len = %d, want 0", len(ranked))
	}
}
