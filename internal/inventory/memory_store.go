package inventory

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/rocketshoes/cart/internal/domain"
)

// MemoryStore implements Store with in-memory maps
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
	stocks   map[int64]int // productID -> available amount
}

// Seed is the document the catalog is started from. It has the same shape
// as the storefront's mock server file: {"products": [...], "stock": [...]}.
type Seed struct {
	Products []domain.Product `json:"products"`
	Stock    []domain.Stock   `json:"stock"`
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]domain.Product),
		stocks:   make(map[int64]int),
	}
}

// LoadSeedFile reads a seed document from disk
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return ReadSeed(f)
}

// ReadSeed decodes and validates a seed document
func ReadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	known := make(map[int64]bool, len(seed.Products))
	for _, p := range seed.Products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("%w: product id %d", ErrInvalidSeed, p.ID)
		}
		known[p.ID] = true
	}
	for _, s := range seed.Stock {
		if !known[s.ProductID] {
			return nil, fmt.Errorf("%w: stock for unknown product %d", ErrInvalidSeed, s.ProductID)
		}
		if s.Amount < 0 {
			return nil, fmt.Errorf("%w: negative stock for product %d", ErrInvalidSeed, s.ProductID)
		}
	}
	return &seed, nil
}

// Load replaces the store contents with the seed. Products without a stock
// entry have no stock available.
func (s *MemoryStore) Load(seed *Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[int64]domain.Product, len(seed.Products))
	s.stocks = make(map[int64]int, len(seed.Products))
	for _, p := range seed.Products {
		s.products[p.ID] = p
		s.stocks[p.ID] = 0
	}
	for _, st := range seed.Stock {
		s.stocks[st.ProductID] = st.Amount
	}
}

func (s *MemoryStore) ListProducts() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

func (s *MemoryStore) GetProduct(productID int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[productID]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetStock(productID int64) (*domain.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	amount, exists := s.stocks[productID]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &domain.Stock{ProductID: productID, Amount: amount}, nil
}

func (s *MemoryStore) SetStock(productID int64, amount int) error {
	if amount < 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[productID]; !exists {
		return ErrProductNotFound
	}
	s.stocks[productID] = amount
	return nil
}
