package domain

// Stock contains the available amount of a product as served by stock/{id}
type Stock struct {
	ProductID int64 `json:"id"`
	Amount    int   `json:"amount"`
}

// Allows reports whether the requested amount fits the available stock
func (s Stock) Allows(amount int) bool {
	return amount <= s.Amount
}
