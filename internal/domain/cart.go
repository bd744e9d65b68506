package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customization holds the design studio attributes attached to a line.
type Customization struct {
	Text      string `json:"text,omitempty"`
	TextColor string `json:"text_color,omitempty"`
	TextSize  int    `json:"text_size,omitempty"`
	GoldFoil  bool   `json:"gold_foil,omitempty"`
	ImageRef  string `json:"image_ref,omitempty"`
}

// CartLine is a product/quantity pair. Name, Price and Image are copied from
// the catalog when the line is created and are not refreshed afterwards.
type CartLine struct {
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Image         string          `json:"image"`
	Quantity      int             `json:"quantity"`
	Size          string          `json:"size,omitempty"`
	Color         string          `json:"color,omitempty"`
	Customization *Customization  `json:"customization,omitempty"`
	AddedAt       time.Time       `json:"added_at"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	OwnerID   string     `json:"owner_id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ItemCount returns the number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Line returns the index of the line for productID, or -1.
func (c *Cart) Line(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// SetQuantity sets the quantity of an existing line. A quantity of zero
// drops the line. It reports whether the line was found.
func (c *Cart) SetQuantity(productID int64, quantity int) bool {
	i := c.Line(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return true
	}
	c.Lines[i].Quantity = quantity
	return true
}

// Clone returns a deep copy so stores never share line slices with callers.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	for i := range out.Lines {
		if cz := out.Lines[i].Customization; cz != nil {
			cp := *cz
			out.Lines[i].Customization = &cp
		}
	}
	return &out
}
