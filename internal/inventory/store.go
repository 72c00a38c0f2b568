package inventory

import (
	"errors"

	"github.com/rocketshoes/cart/internal/domain"
)

// Common errors returned by the store
var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidAmount   = errors.New("stock amount must not be negative")
	ErrInvalidSeed     = errors.New("invalid seed data")
)

// Store defines the catalog data served to the cart
type Store interface {
	// ListProducts returns every product ordered by id
	ListProducts() []domain.Product

	// GetProduct returns a single product
	GetProduct(productID int64) (*domain.Product, error)

	// GetStock returns the available amount of a product
	GetStock(productID int64) (*domain.Stock, error)

	// SetStock overwrites the available amount of a known product
	SetStock(productID int64, amount int) error
}
