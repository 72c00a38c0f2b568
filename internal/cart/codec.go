package cart

import (
	"encoding/json"
	"fmt"

	"github.com/rocketshoes/cart/internal/domain"
)

// encode serializes the cart as a JSON array of flat items. Prices are
// written as quoted decimals; numeric prices are still accepted by decode.
func encode(c domain.Cart) (string, error) {
	if c == nil {
		c = domain.Cart{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cart: %w", err)
	}
	return string(data), nil
}

// decode parses and validates a stored cart.
func decode(raw string) (domain.Cart, error) {
	var c domain.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	if c == nil {
		c = domain.Cart{}
	}
	return c, nil
}

func validate(c domain.Cart) error {
	seen := make(map[int64]struct{}, len(c))
	for i, item := range c {
		if item.ID <= 0 {
			return fmt.Errorf("item %d: invalid product id %d", i, item.ID)
		}
		if item.Amount < 1 {
			return fmt.Errorf("item %d: amount must be at least 1, got %d", i, item.Amount)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("item %d: duplicate product id %d", i, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
