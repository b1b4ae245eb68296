package catalog

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/macieszak/confectionery-storefront/internal/domain/product"
)

// Endpoint selects which store API call a plan resolves through.
type Endpoint int

const (
	// EndpointList fetches the whole catalog.
	EndpointList Endpoint = iota
	// EndpointFilter fetches by category and/or price range.
	EndpointFilter
	// EndpointSorted fetches the catalog pre-sorted by the server.
	EndpointSorted
	// EndpointSearch fetches by free-text query.
	EndpointSearch
)

func (e Endpoint) String() string {
	switch e {
	case EndpointFilter:
		return "filter"
	case EndpointSorted:
		return "sorted"
	case EndpointSearch:
		return "search"
	default:
		return "list"
	}
}

// Plan is the canonical resolution of a Query: exactly one API request plus
// the local steps covering the axes that request cannot express. Deriving a
// single plan per query change is what keeps the four axes coherent; the
// store API only speaks one axis per endpoint.
type Plan struct {
	Endpoint Endpoint

	// Search is the query text for EndpointSearch.
	Search string
	// Category is the category parameter for EndpointFilter; empty when the
	// category axis is inactive.
	Category string
	// MinPrice and MaxPrice are the price parameters for EndpointFilter.
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	// Sort is the sort parameter for EndpointSorted.
	Sort SortOrder

	Local LocalSteps
}

// LocalSteps are applied to the fetched list, in order: category filter,
// price filter, then ordering.
type LocalSteps struct {
	Category CategoryFilter // CategoryAll or "" means no step
	Band     PriceBand      // BandAll or "" means no step
	Sort     SortOrder      // SortDefault or "" means no step

	// Alphabetical orders the baseline all-products view by name. Only set
	// when no explicit sort is active.
	Alphabetical bool
}

// Plan derives the canonical request for the query under the given search
// composition mode.
func (q Query) Plan(mode SearchMode) Plan {
	if q.Search != "" {
		p := Plan{Endpoint: EndpointSearch, Search: q.Search}
		if mode == SearchCombined {
			p.Local = LocalSteps{Category: q.Category, Band: q.Band, Sort: q.Sort}
		}
		return p
	}

	if q.Filtered() {
		p := Plan{Endpoint: EndpointFilter, Local: LocalSteps{Sort: q.Sort}}
		if q.Category != CategoryAll {
			p.Category = string(q.Category)
		}
		p.MinPrice, p.MaxPrice = q.Band.Bounds()
		return p
	}

	if q.Sort != SortDefault && q.Sort != "" {
		return Plan{Endpoint: EndpointSorted, Sort: q.Sort}
	}

	return Plan{Endpoint: EndpointList, Local: LocalSteps{Alphabetical: true}}
}

// Apply runs the local steps over a fetched list and returns the resulting
// list. The input slice is not modified.
func (s LocalSteps) Apply(in []product.Product) []product.Product {
	out := make([]product.Product, 0, len(in))
	minPrice, maxPrice := s.Band.Bounds()
	for _, p := range in {
		if s.Category != "" && s.Category != CategoryAll && string(p.Category) != string(s.Category) {
			continue
		}
		if minPrice != nil && p.Price.LessThan(*minPrice) {
			continue
		}
		if maxPrice != nil && p.Price.GreaterThan(*maxPrice) {
			continue
		}
		out = append(out, p)
	}

	switch {
	case s.Sort == SortCheapest:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return a.Price.Cmp(b.Price)
		})
	case s.Sort == SortExpensive:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return b.Price.Cmp(a.Price)
		})
	case s.Alphabetical:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return strings.Compare(a.Name, b.Name)
		})
	}
	return out
}
