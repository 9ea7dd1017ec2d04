package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductSize is how much of the grid a product card takes.
type ProductSize string

const (
	SizeHalf ProductSize = "half"
	SizeFull ProductSize = "full"
)

// LowStockThreshold is the stock level at or below which storefronts warn
// that few units remain.
const LowStockThreshold = 10

// Product is a seller's catalog entry.
type Product struct {
	ID            string          `json:"id"`
	SellerID      string          `json:"seller_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"image_url,omitempty"`
	Images        []string        `json:"images,omitempty"`
	Size          ProductSize     `json:"size"`
	StockQuantity *int            `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	OrderIndex    int             `json:"order_index"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OutOfStock is true when stock is tracked and nothing is left.
func (p *Product) OutOfStock() bool {
	return p.StockQuantity != nil && *p.StockQuantity <= 0
}

// LowStock is true when stock is tracked and between 1 and LowStockThreshold.
func (p *Product) LowStock() bool {
	return p.StockQuantity != nil && *p.StockQuantity > 0 && *p.StockQuantity <= LowStockThreshold
}

// AllImages is the cover image followed by the gallery, blanks dropped.
func (p *Product) AllImages() []string {
	out := make([]string, 0, len(p.Images)+1)
	if p.ImageURL != "" {
		out = append(out, p.ImageURL)
	}
	for _, img := range p.Images {
		if img != "" {
			out = append(out, img)
		}
	}
	return out
}

// UnitAmountCents converts the price to minor units, rounding half away
// from zero.
func (p *Product) UnitAmountCents() int64 {
	return p.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// IsValid reports whether s is a known card size.
func (s ProductSize) IsValid() bool {
	return s == SizeHalf || s == SizeFull
}
