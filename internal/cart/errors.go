package cart

import "errors"

var (
	// ErrOutOfStock is returned when the requested amount exceeds the stock
	ErrOutOfStock = errors.New("requested amount is out of stock")
	// ErrNotInCart is returned when removing a product the cart does not hold
	ErrNotInCart = errors.New("product not in cart")

	ErrAddFailed    = errors.New("add product failed")
	ErrRemoveFailed = errors.New("remove product failed")
	ErrUpdateFailed = errors.New("update product amount failed")

	ErrClosed = errors.New("cart store is closed")
)
