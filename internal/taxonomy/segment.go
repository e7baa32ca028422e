package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// SegmentKind discriminates the taxonomy level a segment identifier targets.
type SegmentKind int

const (
	KindUniverse SegmentKind = iota
	KindCategory
	KindFamily
	KindSubFamily
)

func (k SegmentKind) String() string {
	switch k {
	case KindUniverse:
		return "universe"
	case KindCategory:
		return "category"
	case KindFamily:
		return "family"
	case KindSubFamily:
		return "sub_family"
	}
	return "unknown"
}

// Segment identifies one node of the product taxonomy. It is immutable:
// constructed once per request via the constructors below, never mutated.
type Segment struct {
	Kind      SegmentKind
	Universe  string
	Category  string
	Family    string
	SubFamily string
}

func Universe(universe string) Segment {
	return Segment{Kind: KindUniverse, Universe: universe}
}

func Category(universe, category string) Segment {
	return Segment{Kind: KindCategory, Universe: universe, Category: category}
}

func Family(universe, category, family string) Segment {
	return Segment{Kind: KindFamily, Universe: universe, Category: category, Family: family}
}

func SubFamily(universe, category, family, subFamily string) Segment {
	return Segment{Kind: KindSubFamily, Universe: universe, Category: category, Family: family, SubFamily: subFamily}
}

// ID renders the legacy delimited form ("universe_category_family").
func (s Segment) ID() string {
	parts := []string{s.Universe}
	if s.Kind >= KindCategory {
		parts = append(parts, s.Category)
	}
	if s.Kind >= KindFamily {
		parts = append(parts, s.Family)
	}
	if s.Kind >= KindSubFamily {
		parts = append(parts, s.SubFamily)
	}
	return strings.Join(parts, "_")
}

// Name is the narrowest level the segment names.
func (s Segment) Name() string {
	switch s.Kind {
	case KindCategory:
		return s.Category
	case KindFamily:
		return s.Family
	case KindSubFamily:
		return s.SubFamily
	}
	return s.Universe
}

var ErrInvalidSegment = errors.New("invalid segment identifier")

// ParseFreeSegment decomposes a legacy delimited identifier such as
// "universe_category" into a Segment. The split on "_" is ambiguous when a
// taxonomy name itself contains an underscore; the first component is taken as
// the universe and each following component as the next narrower level, which
// matches what legacy callers produced. Callers needing exact names should use
// the typed constructors instead.
func ParseFreeSegment(id string) (Segment, error) {
	if strings.TrimSpace(id) == "" {
		return Segment{}, fmt.Errorf("%w: empty identifier", ErrInvalidSegment)
	}
	parts := strings.Split(id, "_")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Segment{}, fmt.Errorf("%w: empty component in %q", ErrInvalidSegment, id)
		}
	}
	switch len(parts) {
	case 1:
		return Universe(parts[0]), nil
	case 2:
		return Category(parts[0], parts[1]), nil
	case 3:
		return Family(parts[0], parts[1], parts[2]), nil
	case 4:
		return SubFamily(parts[0], parts[1], parts[2], parts[3]), nil
	}
	return Segment{}, fmt.Errorf("%w: %q has %d components, want 1-4", ErrInvalidSegment, id, len(parts))
}

// ReferenceLookup answers taxonomy questions from the global product
// reference table.
type ReferenceLookup interface {
	// UniverseForCategory returns the universe a category canonically belongs
	// to, or "" when the category is unknown.
	UniverseForCategory(ctx context.Context, category string) (string, error)
	// CountSegmentProducts returns how many reference products fall inside the
	// segment.
	CountSegmentProducts(ctx context.Context, seg Segment) (int64, error)
}

var ErrSegmentNotFound = errors.New("segment matches no products")

// Resolution is a resolved segment: canonical names plus the match count that
// proved the segment exists.
type Resolution struct {
	Segment      Segment
	ProductCount int64
	// UniverseCorrected is set when the caller-supplied universe was replaced
	// by the one the reference table holds for the category.
	UniverseCorrected bool
}

// Resolve validates a segment against the product reference. For segments at
// category level or below, the category name is treated as more authoritative
// than the caller-supplied universe: if the reference table knows the category
// under a different universe, the segment is corrected to that universe. This
// compensates for callers passing stale universe names and is logged rather
// than silent.
//
// Resolve fails with ErrSegmentNotFound only when zero reference products
// match; a valid segment with no sales in some scope is not an error.
func Resolve(ctx context.Context, ref ReferenceLookup, seg Segment) (Resolution, error) {
	res := Resolution{Segment: seg}

	if seg.Kind >= KindCategory && seg.Category != "" {
		canonical, err := ref.UniverseForCategory(ctx, seg.Category)
		if err != nil {
			return Resolution{}, fmt.Errorf("probing universe for category %q: %w", seg.Category, err)
		}
		if canonical != "" && canonical != seg.Universe {
			log.Printf("taxonomy: correcting universe %q -> %q for category %q", seg.Universe, canonical, seg.Category)
			res.Segment.Universe = canonical
			res.UniverseCorrected = true
		}
	}

	count, err := ref.CountSegmentProducts(ctx, res.Segment)
	if err != nil {
		return Resolution{}, fmt.Errorf("counting segment products: %w", err)
	}
	if count == 0 {
		return Resolution{}, fmt.Errorf("%w: %s %q", ErrSegmentNotFound, res.Segment.Kind, res.Segment.ID())
	}
	res.ProductCount = count

	return res, nil
}
