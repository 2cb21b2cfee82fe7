package domain

import (
	"context"
	"time"
)

// Product is a catalog product, read-only from the purchase flow's point of view.
// swagger:model Product
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RetailPrice float64   `json:"retail_price"`
	SalePrice   float64   `json:"sale_price"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EffectivePrice is the sale price when one is set, the retail price otherwise.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice > 0 {
		return p.SalePrice
	}
	return p.RetailPrice
}

// FirstImage returns the product's primary image, or "" when it has none.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductRepository defines read access to the product catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Product, error)
}
