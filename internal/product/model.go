package product

import (
	"github.com/shopspring/decimal"

	"mensstore-be/internal/pricing"
)

type Product struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	Category           string          `json:"category"`
	SubCategory        string          `json:"subCategory"`
	Images             []string        `json:"images,omitempty"`
	Sizes              []string        `json:"sizes,omitempty"`
	Colors             []string        `json:"colors,omitempty"`
	Brand              string          `json:"brand"`
	InStock            bool            `json:"inStock"`
	StockQuantity      int             `json:"stockQuantity"`
	Rating             float64         `json:"rating"`
	ReviewCount        int             `json:"reviewCount"`
	Tags               []string        `json:"tags,omitempty"`
	DiscountPercentage int             `json:"discountPercentage"`
	Featured           bool            `json:"featured"`
	DateAdded          int64           `json:"dateAdded"`
	LastModified       int64           `json:"lastModified"`
}

// DiscountedPrice is the list price after the product's discount, rounded to
// currency precision. Discount range is validated on write, so an invalid
// stored value falls back to the list price.
func (p Product) DiscountedPrice() decimal.Decimal {
	d, err := pricing.DiscountedPrice(p.Price, p.DiscountPercentage)
	if err != nil {
		return p.Price
	}
	return d
}

// Sort keys accepted by ProductQuery.SortBy.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

// ProductQuery describes a catalog listing: optional conjunctive filters, a
// sort key (newest when empty) and limit/offset pagination.
type ProductQuery struct {
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string
	Limit    int
	Offset   int
}

// Snapshot is one delivery of a live product listing.
type Snapshot struct {
	Products []Product
	Err      error
}

// DocSnapshot is one delivery of a live single-product lookup. Product is
// nil while the document is absent or after it has been deleted.
type DocSnapshot struct {
	Product *Product
	Err     error
}
