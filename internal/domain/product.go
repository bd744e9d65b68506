package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. OriginalPrice holds the pre-sale price when the
// product is discounted.
type Product struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Price          decimal.Decimal  `json:"price"`
	OriginalPrice  *decimal.Decimal `json:"original_price,omitempty"`
	Image          string           `json:"image"`
	Images         []string         `json:"images,omitempty"`
	Category       string           `json:"category"`
	Stock          int              `json:"stock"`
	IsCustomizable bool             `json:"is_customizable"`
	IsNew          bool             `json:"is_new"`
	Features       []string         `json:"features,omitempty"`
	Colors         []string         `json:"colors,omitempty"`
	Sizes          []string         `json:"sizes,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// OnSale reports whether the product is discounted from its original price.
func (p Product) OnSale() bool {
	return p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price)
}

// LowStock reports whether stock fell under threshold.
func (p Product) LowStock(threshold int) bool {
	return p.Stock < threshold
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductPatch carries a partial product update; nil fields are left as is.
// ClearOriginalPrice takes the product off sale and wins over OriginalPrice.
type ProductPatch struct {
	Name               *string          `json:"name,omitempty"`
	Description        *string          `json:"description,omitempty"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	OriginalPrice      *decimal.Decimal `json:"original_price,omitempty"`
	ClearOriginalPrice bool             `json:"clear_original_price,omitempty"`
	Image              *string          `json:"image,omitempty"`
	Images             []string         `json:"images,omitempty"`
	Category           *string          `json:"category,omitempty"`
	Stock              *int             `json:"stock,omitempty"`
	IsCustomizable     *bool            `json:"is_customizable,omitempty"`
	IsNew              *bool            `json:"is_new,omitempty"`
	Features           []string         `json:"features,omitempty"`
	Colors             []string         `json:"colors,omitempty"`
	Sizes              []string         `json:"sizes,omitempty"`
}

// Apply merges the patch into p and returns the result.
func (pp ProductPatch) Apply(p Product) Product {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	switch {
	case pp.ClearOriginalPrice:
		p.OriginalPrice = nil
	case pp.OriginalPrice != nil:
		op := *pp.OriginalPrice
		p.OriginalPrice = &op
	}
	if pp.Image != nil {
		p.Image = *pp.Image
	}
	if pp.Images != nil {
		p.Images = pp.Images
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	if pp.IsCustomizable != nil {
		p.IsCustomizable = *pp.IsCustomizable
	}
	if pp.IsNew != nil {
		p.IsNew = *pp.IsNew
	}
	if pp.Features != nil {
		p.Features = pp.Features
	}
	if pp.Colors != nil {
		p.Colors = pp.Colors
	}
	if pp.Sizes != nil {
		p.Sizes = pp.Sizes
	}
	return p
}
