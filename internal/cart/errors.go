package cart

import "errors"

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrLineNotFound    = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrOutOfStock      = errors.New("product out of stock")
	ErrCacheMiss       = errors.New("cache miss")
)
