package analytics

import (
	"fmt"
	"time"
)

// Range is an inclusive date range on the sale date.
type Range struct {
	From time.Time
	To   time.Time
}

// Scope bounds an aggregation request: a primary date range, an optional
// comparison range, and an optional explicit pharmacy set. An empty pharmacy
// set means all pharmacies, not none.
//
// Scope is a value: building the primary and the comparison predicate from the
// same scope never interferes, there is no builder state.
type Scope struct {
	DateFrom           time.Time
	DateTo             time.Time
	ComparisonDateFrom *time.Time
	ComparisonDateTo   *time.Time
	PharmacyIDs        []int64
}

// Validate checks the scope before any query runs. The comparison range, when
// present, is independent of the primary range and is not required to precede
// it.
func (s Scope) Validate() error {
	if s.DateFrom.IsZero() || s.DateTo.IsZero() {
		return fmt.Errorf("%w: date range is required", ErrInvalidScope)
	}
	if s.DateTo.Before(s.DateFrom) {
		return fmt.Errorf("%w: date_from %s after date_to %s", ErrInvalidScope,
			s.DateFrom.Format("2006-01-02"), s.DateTo.Format("2006-01-02"))
	}
	if (s.ComparisonDateFrom == nil) != (s.ComparisonDateTo == nil) {
		return fmt.Errorf("%w: comparison range must set both dates", ErrInvalidScope)
	}
	if s.ComparisonDateFrom != nil && s.ComparisonDateTo.Before(*s.ComparisonDateFrom) {
		return fmt.Errorf("%w: comparison_date_from %s after comparison_date_to %s", ErrInvalidScope,
			s.ComparisonDateFrom.Format("2006-01-02"), s.ComparisonDateTo.Format("2006-01-02"))
	}
	return nil
}

// Primary returns the primary date range.
func (s Scope) Primary() Range {
	return Range{From: s.DateFrom, To: s.DateTo}
}

// Comparison returns the comparison date range, if the scope carries one.
func (s Scope) Comparison() (Range, bool) {
	if s.ComparisonDateFrom == nil || s.ComparisonDateTo == nil {
		return Range{}, false
	}
	return Range{From: *s.ComparisonDateFrom, To: *s.ComparisonDateTo}, true
}
