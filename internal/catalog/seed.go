package catalog

import (
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

// DemoProducts returns the starter catalog. The canvas and tote prices are
// placeholders until the shop sets them.
func DemoProducts() []domain.Product {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Product{
		{
			ID:             1,
			Name:           "Premium Custom T-Shirt",
			Description:    "Experience luxury with our premium custom t-shirt.",
			Price:          price("299.99"),
			OriginalPrice:  pricePtr("399.99"),
			Image:          "/products/tshirt-1.jpg",
			Images:         []string{"/products/tshirt-detail-1.jpg", "/products/tshirt-detail-2.jpg", "/products/tshirt-detail-3.jpg"},
			Category:       "clothing",
			Stock:          15,
			IsCustomizable: true,
			IsNew:          true,
			Features:       []string{"100% Organic Cotton", "Gold Thread Accents", "Custom Design Ready"},
			Colors:         []string{"black", "white", "gold"},
			Sizes:          []string{"XS", "S", "M", "L", "XL", "XXL"},
			CreatedAt:      created,
		},
		{
			ID:             2,
			Name:           "Custom Travel Mug",
			Description:    "Handcrafted ceramic mug perfect for your morning ritual.",
			Price:          price("149.99"),
			Image:          "/products/mug-1.jpg",
			Category:       "accessories",
			Stock:          25,
			IsCustomizable: true,
			CreatedAt:      created,
		},
		{
			ID:             3,
			Name:           "Personalized Baseball Cap",
			Description:    "Premium baseball cap with custom embroidery options.",
			Price:          price("199.99"),
			Image:          "/products/cap-1.jpg",
			Category:       "clothing",
			Stock:          18,
			IsCustomizable: true,
			Features:       []string{"Adjustable Strap", "Custom Logo", "UV Protection"},
			Colors:         []string{"black", "white", "navy", "red"},
			CreatedAt:      created,
		},
		{
			ID:             4,
			Name:           "Custom Embroidered Hoodie",
			Description:    "Luxurious hoodie with premium embroidery and gold accents.",
			Price:          price("599.99"),
			Image:          "/products/hoodie-1.jpg",
			Category:       "clothing",
			Stock:          12,
			IsCustomizable: true,
			Features:       []string{"Cotton Blend", "Lined Hood", "Custom Embroidery"},
			Colors:         []string{"black", "grey", "navy"},
			Sizes:          []string{"S", "M", "L", "XL", "XXL"},
			CreatedAt:      created,
		},
		{
			ID:             5,
			Name:           "Artisan Cutting Board",
			Description:    "Handcrafted wooden cutting board, perfect for custom engraving.",
			Price:          price("299.99"),
			Image:          "/products/cutting-board-1.jpg",
			Category:       "home",
			Stock:          8,
			IsCustomizable: true,
			Features:       []string{"Solid Wood", "Food Safe Finish", "Custom Engraving"},
			CreatedAt:      created,
		},
		{
			ID:             6,
			Name:           "Personalized Phone Case",
			Description:    "Protective phone case with custom design options.",
			Price:          price("99.99"),
			Image:          "/products/phone-case-1.jpg",
			Category:       "accessories",
			Stock:          30,
			IsCustomizable: true,
			Features:       []string{"Drop Protection", "Custom Graphics", "Multiple Models"},
			CreatedAt:      created,
		},
		{
			ID:             7,
			Name:           "Custom Canvas Art",
			Description:    "Beautiful custom canvas artwork available in multiple designs and sizes.",
			Price:          price("0.00"),
			Image:          "/products/canvas-1.jpg",
			Images:         []string{"/products/canvas-1.jpg", "/products/canvas-2.jpg", "/products/canvas-3.jpg", "/products/canvas-4.jpg"},
			Category:       "art",
			Stock:          15,
			IsCustomizable: true,
			Features:       []string{"High Quality Canvas", "Custom Design", "Multiple Sizes", "Gallery Wrap"},
			Sizes:          []string{"Small (12x16)", "Medium (16x20)", "Large (20x24)", "Extra Large (24x36)"},
			CreatedAt:      created,
		},
		{
			ID:             8,
			Name:           "Designer Tote Bag",
			Description:    "Stylish and functional tote bag for everyday use.",
			Price:          price("0.00"),
			Image:          "/products/bag-1.jpg",
			Category:       "accessories",
			Stock:          22,
			IsCustomizable: true,
			Features:       []string{"Durable Material", "Custom Print", "Large Capacity"},
			Colors:         []string{"black", "white", "navy", "brown"},
			CreatedAt:      created,
		},
	}
}
