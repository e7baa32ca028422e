package analytics

import (
	"context"

	"github.com/phardev/phardata/internal/taxonomy"
)

// SalesStore is the read-only sales-fact source the engine aggregates over.
// Implementations scope every query to (segment × pharmacy set × date range)
// and must honor context cancellation so an abandoned request stops the scan.
//
// Empty pharmacyIDs means no pharmacy restriction.
type SalesStore interface {
	// SegmentTotals aggregates the whole segment into one row. Zero rows is a
	// zero-valued Totals, not an error.
	SegmentTotals(ctx context.Context, seg taxonomy.Segment, pharmacyIDs []int64, r Range) (Totals, error)

	// AggregateByLab aggregates the segment per laboratory.
	AggregateByLab(ctx context.Context, seg taxonomy.Segment, pharmacyIDs []int64, r Range) ([]LabAggregate, error)

	// AggregateByProduct aggregates the segment per product, carrying display
	// fields and the latest stock snapshot at or before r.To.
	AggregateByProduct(ctx context.Context, seg taxonomy.Segment, pharmacyIDs []int64, r Range) ([]ProductAggregate, error)
}
