package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category classifies a product in the shop's assortment.
type Category string

const (
	CategoryCakes   Category = "cakes"
	CategoryCookies Category = "cookies"
	CategoryOther   Category = "other"
)

// ParseCategory maps a server-provided category string to a known Category.
// Unknown values fall back to CategoryOther rather than failing the decode;
// the backend may grow categories the client has not heard of yet.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryCakes, CategoryCookies:
		return Category(s)
	default:
		return CategoryOther
	}
}

// Product represents a single catalog item as served by the store API.
// A Product is immutable once fetched; a fresh fetch replaces the whole value.
type Product struct {
	ID          int64
	Name        string
	Category    Category
	Price       decimal.Decimal
	Description string
	ImageName   string
}
