package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rocketshoes/cart/internal/domain"
	"github.com/rocketshoes/cart/internal/notify"
	"github.com/rocketshoes/cart/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultKey = "@RocketShoes:cart"

// Catalog is the read side of the catalog service the store validates against.
type Catalog interface {
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	GetStock(ctx context.Context, productID int64) (*domain.Stock, error)
}

type Config struct {
	Catalog  Catalog
	Storage  storage.Storage
	Notifier notify.Notifier
	Logger   *zap.Logger
	// Key is the storage key of the cart, DefaultKey when empty
	Key string
}

type operation struct {
	ctx  context.Context
	run  func(ctx context.Context) error
	done chan result
}

// result is the outcome of an operation and the cart it left behind
type result struct {
	cart domain.Cart
	err  error
}

// Store owns the cart of one shopper. Mutations are executed one at a time
// in arrival order; every successful mutation is written to storage before
// the in-memory cart is replaced.
type Store struct {
	catalog  Catalog
	storage  storage.Storage
	notifier notify.Notifier
	logger   *zap.Logger
	key      string

	mu   sync.RWMutex
	cart domain.Cart

	ops       chan operation
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New loads the cart from storage and starts the operation queue.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Catalog == nil || cfg.Storage == nil {
		return nil, errors.New("cart store needs a catalog and a storage")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}

	s := &Store{
		catalog:  cfg.Catalog,
		storage:  cfg.Storage,
		notifier: cfg.Notifier,
		logger:   cfg.Logger.Named("cart"),
		key:      cfg.Key,
		ops:      make(chan operation),
		stop:     make(chan struct{}),
	}

	loaded, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cart = loaded

	s.wg.Add(1)
	go s.loop()

	return s, nil
}

func (s *Store) load(ctx context.Context) (domain.Cart, error) {
	raw, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	c, err := decode(raw)
	if err != nil {
		s.logger.Warn("stored cart is malformed, starting with an empty cart",
			zap.String("key", s.key), zap.Error(err))
		return domain.Cart{}, nil
	}

	s.logger.Info("cart loaded", zap.String("key", s.key), zap.Int("items", len(c)))
	return c, nil
}

func (s *Store) loop() {
	defer s.wg.Done()
	for {
		select {
		case op := <-s.ops:
			// the caller may have given up while blocked on the channel
			if err := op.ctx.Err(); err != nil {
				op.done <- result{err: err}
				continue
			}
			if err := op.run(op.ctx); err != nil {
				op.done <- result{err: err}
				continue
			}
			op.done <- result{cart: s.Cart()}
		case <-s.stop:
			return
		}
	}
}

// submit blocks until the queue has run fn and returns the cart fn left
// behind. Senders blocked on the unbuffered channel are served in FIFO
// order. An operation whose ctx is done before it starts never runs.
func (s *Store) submit(ctx context.Context, fn func(ctx context.Context) error) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	op := operation{ctx: ctx, run: fn, done: make(chan result, 1)}
	select {
	case s.ops <- op:
	case <-s.stop:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	res := <-op.done
	return res.cart, res.err
}

// Close stops the queue. Operations submitted afterwards fail with ErrClosed.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Cart returns a snapshot of the current cart.
func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

func (s *Store) current() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// commit persists next and only then makes it the current cart.
func (s *Store) commit(ctx context.Context, next domain.Cart) error {
	value, err := encode(next)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, s.key, value); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}

	s.mu.Lock()
	s.cart = next
	s.mu.Unlock()
	return nil
}

// AddProduct adds one unit of the product, fetching its display data and
// stock level from the catalog. It returns the cart as committed.
func (s *Store) AddProduct(ctx context.Context, productID int64) (domain.Cart, error) {
	return s.submit(ctx, func(ctx context.Context) error {
		err := s.addProduct(ctx, productID)
		switch {
		case err == nil:
			s.notifier.Notify(ctx, notify.Success(notify.MsgAdded, productID))
		case errors.Is(err, ErrOutOfStock):
			s.notifier.Notify(ctx, notify.Error(notify.MsgOutOfStock, productID))
		default:
			s.logger.Error("add product failed", zap.Int64("product_id", productID), zap.Error(err))
			s.notifier.Notify(ctx, notify.Error(notify.MsgAddFailed, productID))
			err = fmt.Errorf("%w: %w", ErrAddFailed, err)
		}
		return err
	})
}

func (s *Store) addProduct(ctx context.Context, productID int64) error {
	var (
		product *domain.Product
		stock   *domain.Stock
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		product, err = s.catalog.GetProduct(gctx, productID)
		return err
	})
	g.Go(func() error {
		var err error
		stock, err = s.catalog.GetStock(gctx, productID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	current := s.current()
	amount := current.AmountOf(productID) + 1
	if !stock.Allows(amount) {
		return ErrOutOfStock
	}

	next := current.Clone()
	if i := next.Find(productID); i >= 0 {
		next[i].Amount = amount
	} else {
		next = append(next, domain.CartItem{Product: *product, Amount: 1})
	}

	return s.commit(ctx, next)
}

// RemoveProduct drops the product from the cart. A product that is not in
// the cart is reported as a failed removal.
func (s *Store) RemoveProduct(ctx context.Context, productID int64) (domain.Cart, error) {
	return s.submit(ctx, func(ctx context.Context) error {
		current := s.current()
		if current.Find(productID) < 0 {
			s.notifier.Notify(ctx, notify.Error(notify.MsgRemoveFailed, productID))
			return ErrNotInCart
		}

		if err := s.commit(ctx, current.Without(productID)); err != nil {
			s.logger.Error("remove product failed", zap.Int64("product_id", productID), zap.Error(err))
			s.notifier.Notify(ctx, notify.Error(notify.MsgRemoveFailed, productID))
			return fmt.Errorf("%w: %w", ErrRemoveFailed, err)
		}
		return nil
	})
}

// UpdateProductAmount sets the absolute amount of a product already in the
// cart. Amounts <= 0 and products missing from the cart are ignored.
func (s *Store) UpdateProductAmount(ctx context.Context, update domain.AmountUpdate) (domain.Cart, error) {
	return s.submit(ctx, func(ctx context.Context) error {
		err := s.updateProductAmount(ctx, update)
		switch {
		case err == nil:
		case errors.Is(err, ErrOutOfStock):
			s.notifier.Notify(ctx, notify.Error(notify.MsgOutOfStock, update.ProductID))
		default:
			s.logger.Error("update product amount failed",
				zap.Int64("product_id", update.ProductID), zap.Int("amount", update.Amount), zap.Error(err))
			s.notifier.Notify(ctx, notify.Error(notify.MsgUpdateFailed, update.ProductID))
			err = fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		}
		return err
	})
}

func (s *Store) updateProductAmount(ctx context.Context, update domain.AmountUpdate) error {
	stock, err := s.catalog.GetStock(ctx, update.ProductID)
	if err != nil {
		return err
	}

	if !stock.Allows(update.Amount) {
		return ErrOutOfStock
	}
	if update.Amount <= 0 {
		return nil
	}

	current := s.current()
	i := current.Find(update.ProductID)
	if i < 0 {
		return nil
	}

	next := current.Clone()
	next[i].Amount = update.Amount
	return s.commit(ctx, next)
}
