package catalog

import (
	"github.com/shopspring/decimal"
)

// CategoryFilter is the category axis of a catalog query.
type CategoryFilter string

const (
	CategoryAll     CategoryFilter = "all"
	CategoryCakes   CategoryFilter = "cakes"
	CategoryCookies CategoryFilter = "cookies"
)

// PriceBand is the price axis of a catalog query. Band names mirror the
// storefront's fixed price buckets.
type PriceBand string

const (
	BandAll PriceBand = "all"
	BandLow PriceBand = "0-15"
	BandMid PriceBand = "15-50"
)

// Bounds returns the inclusive price range of the band. Both bounds are nil
// for BandAll.
func (b PriceBand) Bounds() (minPrice, maxPrice *decimal.Decimal) {
	var lo, hi decimal.Decimal
	switch b {
	case BandLow:
		lo = decimal.Zero
		hi = decimal.NewFromInt(15)
	case BandMid:
		lo = decimal.NewFromInt(15)
		hi = decimal.NewFromInt(50)
	default:
		return nil, nil
	}
	return &lo, &hi
}

// SortOrder is the sort axis of a catalog query.
type SortOrder string

const (
	SortDefault   SortOrder = "default"
	SortCheapest  SortOrder = "cheapest"
	SortExpensive SortOrder = "expensive"
)

// SearchMode decides how the search axis composes with category and price
// filters. The backend search endpoint accepts only the query text, so any
// composition happens on the client.
type SearchMode string

const (
	// SearchCombined applies the active category/price/sort axes to the
	// search result locally, keeping all four axes in effect at once.
	SearchCombined SearchMode = "combined"
	// SearchExclusive shows search results as the backend returns them,
	// treating search and filters as mutually exclusive views.
	SearchExclusive SearchMode = "exclusive"
)

// Query is the full four-axis state of the catalog view. Exactly one value is
// active per axis; the zero-ish baseline is DefaultQuery.
type Query struct {
	Search   string
	Category CategoryFilter
	Band     PriceBand
	Sort     SortOrder
}

// DefaultQuery returns the baseline query: no search, no filters, server
// default order.
func DefaultQuery() Query {
	return Query{
		Category: CategoryAll,
		Band:     BandAll,
		Sort:     SortDefault,
	}
}

// Filtered reports whether any filter axis (category or price) is active.
func (q Query) Filtered() bool {
	return q.Category != CategoryAll || q.Band != BandAll
}
