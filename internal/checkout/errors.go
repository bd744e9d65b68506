package checkout

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition = errors.New("illegal transition of checkout step")
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrInvalidShipping   = errors.New("invalid shipping address")
	ErrInvalidAuthMode   = errors.New("invalid auth mode")
)
