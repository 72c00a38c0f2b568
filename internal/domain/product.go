package domain

import "github.com/shopspring/decimal"

// Product is the catalog representation of a shoe as served by products/{id}.
type Product struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}
