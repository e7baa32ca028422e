package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
)

func product(id int64, lab string, revenue int64) ProductAggregate {
	return ProductAggregate{
		ProductID: id,
		Name:      "P",
		BrandLab:  lab,
		Revenue:   dec(revenue),
		Margin:    dec(revenue / 5),
		Quantity:  revenue / 10,
	}
}

func TestPartitionTopProductsWithLab(t *testing.T) {
	products := []ProductAggregate{
		product(1, "LabA", 100),
		product(2, "LabB", 900),
		product(3, "LabA", 500),
		product(4, "LabC", 300),
		product(5, "LabA", 700),
	}

	top := PartitionTopProducts(products, "LabA", 2)

	if len(top.Selected) != 2 {
		t.Fatalf("selected len = %d, want 2", len(top.Selected))
	}
	if top.Selected[0].ProductID != 5 || top.Selected[1].ProductID != 3 {
		t.Errorf("selected = [%d %d], want [5 3]", top.Selected[0].ProductID, top.Selected[1].ProductID)
	}
	for _, p := range top.Selected {
		if p.BrandLab != "LabA" {
			t.Errorf("selected product %d has lab %q", p.ProductID, p.BrandLab)
		}
	}

	if len(top.Others) != 2 {
		t.Fatalf("others len = %d, want 2", len(top.Others))
	}
	if top.Others[0].ProductID != 2 || top.Others[1].ProductID != 4 {
		t.Errorf("others = [%d %d], want [2 4]", top.Others[0].ProductID, top.Others[1].ProductID)
	}
	for _, p := range top.Others {
		if p.BrandLab == "LabA" {
			t.Errorf("others product %d has the selected lab", p.ProductID)
		}
	}

	// The two lists are disjoint.
	seen := map[int64]bool{}
	for _, p := range top.Selected {
		seen[p.ProductID] = true
	}
	for _, p := range top.Others {
		if seen[p.ProductID] {
			t.Errorf("product %d appears in both lists", p.ProductID)
		}
	}
}

func TestPartitionTopProductsNoLab(t *testing.T) {
	products := []ProductAggregate{
		product(1, "LabA", 100),
		product(2, "LabB", 900),
		product(3, "LabA", 500),
		product(4, "LabC", 300),
		product(5, "LabA", 700),
	}

	top := PartitionTopProducts(products, "", 2)

	// No lab selected: global top limit×2, others empty.
	if len(top.Selected) != 4 {
		t.Fatalf("selected len = %d, want 4", len(top.Selected))
	}
	if top.Selected[0].ProductID != 2 {
		t.Errorf("top product = %d, want 2", top.Selected[0].ProductID)
	}
	if len(top.Others) != 0 {
		t.Errorf("others len = %d, want 0", len(top.Others))
	}
}

func TestPartitionTopProductsMarginPct(t *testing.T) {
	products := []ProductAggregate{
		{ProductID: 1, BrandLab: "LabA", Revenue: dec(200), Margin: dec(50), CurrentStock: 12},
	}

	top := PartitionTopProducts(products, "LabA", 5)
	if len(top.Selected) != 1 {
		t.Fatalf("selected len = %d", len(top.Selected))
	}
	if got := top.Selected[0].MarginPct; !got.Equal(decimal.NewFromInt(25)) {
		t.Errorf("margin pct = %s, want 25", got)
	}
	if top.Selected[0].CurrentStock != 12 {
		t.Errorf("current stock = %d, want 12", top.Selected[0].CurrentStock)
	}
}

func TestPartitionTopProductsEmpty(t *testing.T) {
	top := PartitionTopProducts(nil, "LabA", 10)
	if top.Selected == nil || top.Others == nil {
		t.Fatal("lists must be empty, not nil")
	}
	if len(top.Selected) != 0 || len(top.Others) != 0 {
		t.Errorf("lists = %d/%d, want empty", len(top.Selected), len(top.Others))
	}
}

func TestPartitionTopProductsZeroLimit(t *testing.T) {
	products := []ProductAggregate{product(1, "LabA", 100)}
	top := PartitionTopProducts(products, "LabA", 0)
	// Zero limit falls back to the default, not an empty result.
	if len(top.Selected) != 1 {
		t.Errorf("selected len = %d, want 1", len(top.Selected))
	}
}
