// Package pricing computes cart totals: subtotal, flat-rate shipping waived
// above a threshold, and the grand total.
package pricing

import (
	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Rules struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Currency              string
}

// DefaultRules returns the storefront defaults: free shipping from R500,
// otherwise R50.
func DefaultRules() Rules {
	return Rules{
		FreeShippingThreshold: decimal.NewFromInt(500),
		FlatShippingFee:       decimal.NewFromInt(50),
		Currency:              "ZAR",
	}
}

type Summary struct {
	Subtotal                 decimal.Decimal `json:"subtotal"`
	Shipping                 decimal.Decimal `json:"shipping"`
	Total                    decimal.Decimal `json:"total"`
	Currency                 string          `json:"currency"`
	ItemCount                int             `json:"item_count"`
	FreeShipping             bool            `json:"free_shipping"`
	RemainingForFreeShipping decimal.Decimal `json:"remaining_for_free_shipping"`
	FreeShippingProgress     decimal.Decimal `json:"free_shipping_progress"`
	Empty                    bool            `json:"empty"`
}

// Shipping returns the fee for a subtotal. The threshold itself qualifies
// for free shipping.
func (r Rules) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(r.FreeShippingThreshold) {
		return decimal.Zero
	}
	return r.FlatShippingFee
}

// Price totals the lines. An empty cart still gets a shipping fee; Empty is
// set so callers can hide the summary.
func (r Rules) Price(lines []domain.CartLine) Summary {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
		count += l.Quantity
	}

	shipping := r.Shipping(subtotal)
	remaining := r.FreeShippingThreshold.Sub(subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	progress := hundred
	if r.FreeShippingThreshold.IsPositive() {
		progress = subtotal.Div(r.FreeShippingThreshold).Mul(hundred).Round(2)
		if progress.GreaterThan(hundred) {
			progress = hundred
		}
	}

	return Summary{
		Subtotal:                 subtotal,
		Shipping:                 shipping,
		Total:                    subtotal.Add(shipping),
		Currency:                 r.Currency,
		ItemCount:                count,
		FreeShipping:             shipping.IsZero(),
		RemainingForFreeShipping: remaining,
		FreeShippingProgress:     progress,
		Empty:                    len(lines) == 0,
	}
}
