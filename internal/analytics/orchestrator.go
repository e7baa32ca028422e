package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/phardev/phardata/internal/taxonomy"
)

// SegmentInfo is the resolved segment header of an analysis result.
type SegmentInfo struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Universe     string          `json:"universe"`
	Category     string          `json:"category,omitempty"`
	Family       string          `json:"family,omitempty"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// SegmentAnalysis is the composite result every analysis endpoint serves.
type SegmentAnalysis struct {
	SegmentInfo            SegmentInfo     `json:"segmentInfo"`
	MarketShareByLab       []LabShare      `json:"marketShareByLab"`
	SelectedLabProductsTop []RankedProduct `json:"selectedLabProductsTop"`
	OtherLabProductsTop    []RankedProduct `json:"otherLabProductsTop"`
}

// Engine composes taxonomy resolution, aggregation, ranking, partitioning and
// bucketizing into the analysis results. It holds no state between calls;
// every call is a pure function of its inputs plus the sales-fact store, so
// concurrent requests never interact.
type Engine struct {
	store SalesStore
	ref   taxonomy.ReferenceLookup
}

func NewEngine(store SalesStore, ref taxonomy.ReferenceLookup) *Engine {
	return &Engine{store: store, ref: ref}
}

// AnalyzeSegment resolves the segment, aggregates it over the scope's primary
// range, and assembles the market-share table plus the partitioned top-product
// lists. selectedLab may be empty (whole-segment view); limit bounds each
// top-product list.
//
// A segment with matches but no sales in scope yields a zero-state result, not
// an error.
func (e *Engine) AnalyzeSegment(ctx context.Context, seg taxonomy.Segment, scope Scope, selectedLab string, limit int) (*SegmentAnalysis, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	res, err := taxonomy.Resolve(ctx, e.ref, seg)
	if err != nil {
		if errors.Is(err, taxonomy.ErrSegmentNotFound) || errors.Is(err, taxonomy.ErrInvalidSegment) {
			return nil, err
		}
		return nil, upstreamErr("resolving segment", err)
	}
	seg = res.Segment

	r := scope.Primary()

	totals, err := e.store.SegmentTotals(ctx, seg, scope.PharmacyIDs, r)
	if err != nil {
		return nil, upstreamErr("aggregating segment totals", err)
	}

	labs, err := e.store.AggregateByLab(ctx, seg, scope.PharmacyIDs, r)
	if err != nil {
		return nil, upstreamErr("aggregating by laboratory", err)
	}

	products, err := e.store.AggregateByProduct(ctx, seg, scope.PharmacyIDs, r)
	if err != nil {
		return nil, upstreamErr("aggregating by product", err)
	}

	top := PartitionTopProducts(products, selectedLab, limit)

	info := SegmentInfo{
		ID:           seg.ID(),
		Name:         seg.Name(),
		Universe:     seg.Universe,
		TotalRevenue: totals.Revenue,
	}
	if seg.Kind >= taxonomy.KindCategory {
		info.Category = seg.Category
	}
	if seg.Kind >= taxonomy.KindFamily {
		info.Family = seg.Family
	}

	return &SegmentAnalysis{
		SegmentInfo:            info,
		MarketShareByLab:       RankMarketShare(labs),
		SelectedLabProductsTop: top.Selected,
		OtherLabProductsTop:    top.Others,
	}, nil
}

// AnalyzeEvolution aggregates the segment by product over both scope ranges
// and bucketizes every product's movement between them. The scope must carry a
// comparison range.
func (e *Engine) AnalyzeEvolution(ctx context.Context, seg taxonomy.Segment, scope Scope) (*EvolutionReport, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	comparison, ok := scope.Comparison()
	if !ok {
		return nil, fmt.Errorf("%w: evolution requires a comparison range", ErrInvalidScope)
	}

	res, err := taxonomy.Resolve(ctx, e.ref, seg)
	if err != nil {
		if errors.Is(err, taxonomy.ErrSegmentNotFound) || errors.Is(err, taxonomy.ErrInvalidSegment) {
			return nil, err
		}
		return nil, upstreamErr("resolving segment", err)
	}
	seg = res.Segment

	current, err := e.store.AggregateByProduct(ctx, seg, scope.PharmacyIDs, scope.Primary())
	if err != nil {
		return nil, upstreamErr("aggregating current period", err)
	}

	previous, err := e.store.AggregateByProduct(ctx, seg, scope.PharmacyIDs, comparison)
	if err != nil {
		return nil, upstreamErr("aggregating comparison period", err)
	}

	report := ClassifyEvolution(current, previous)
	return &report, nil
}
