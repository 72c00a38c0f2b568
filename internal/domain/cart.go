package domain

import "github.com/shopspring/decimal"

// CartItem is a product plus the requested amount. It is stored flat, the
// product fields sit next to "amount" in the JSON document.
type CartItem struct {
	Product
	Amount int `json:"amount"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Amount)))
}

// Cart keeps items in insertion order, at most one item per product id.
type Cart []CartItem

type AmountUpdate struct {
	ProductID int64 `json:"productId"`
	Amount    int   `json:"amount"`
}

// Find returns the index of the item with the given product id or -1.
func (c Cart) Find(productID int64) int {
	for i, item := range c {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

// AmountOf returns the requested amount for the product, 0 when absent.
func (c Cart) AmountOf(productID int64) int {
	if i := c.Find(productID); i >= 0 {
		return c[i].Amount
	}
	return 0
}

// Clone returns a copy that can be mutated without touching c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Without returns a copy of c with the product removed.
func (c Cart) Without(productID int64) Cart {
	out := make(Cart, 0, len(c))
	for _, item := range c {
		if item.ID != productID {
			out = append(out, item)
		}
	}
	return out
}

// Size is the number of distinct products in the cart.
func (c Cart) Size() int {
	return len(c)
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.Subtotal())
	}
	return total
}
