package orders

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrDuplicateOrder = errors.New("order already exists")
)
