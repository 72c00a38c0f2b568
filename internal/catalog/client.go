package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rocketshoes/cart/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20 // 1MB

var (
	ErrNotFound          = errors.New("catalog: not found")
	ErrUnavailable       = errors.New("catalog: unavailable")
	ErrMalformedResponse = errors.New("catalog: malformed response")
)

// StatusError is returned for non-2xx answers other than 404
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: status %d: %s", e.StatusCode, e.Body)
}

type Options struct {
	BaseURL string
	// Timeout bounds a single request
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
	// Transport defaults to http.DefaultTransport
	Transport http.RoundTripper
}

// Client reads products and stock levels from the catalog API. Calls are
// never retried; the breaker only makes a failing catalog fail fast.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

func NewClient(logger *zap.Logger, opts Options) *Client {
	logger = logger.Named("catalog")

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(transport)},
		breaker:    breaker,
		logger:     logger,
	}
}

// GetProduct fetches products/{id}
func (c *Client) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	body, err := c.get(ctx, fmt.Sprintf("products/%d", productID))
	if err != nil {
		return nil, err
	}

	var product domain.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("%w: decode product: %v", ErrMalformedResponse, err)
	}
	if product.ID != productID {
		return nil, fmt.Errorf("%w: got product %d, want %d", ErrMalformedResponse, product.ID, productID)
	}
	return &product, nil
}

// GetStock fetches stock/{id}
func (c *Client) GetStock(ctx context.Context, productID int64) (*domain.Stock, error) {
	body, err := c.get(ctx, fmt.Sprintf("stock/%d", productID))
	if err != nil {
		return nil, err
	}

	var raw struct {
		ID     *int64 `json:"id"`
		Amount *int   `json:"amount"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode stock: %v", ErrMalformedResponse, err)
	}
	if raw.Amount == nil || *raw.Amount < 0 {
		return nil, fmt.Errorf("%w: stock %d has no valid amount", ErrMalformedResponse, productID)
	}
	if raw.ID != nil && *raw.ID != productID {
		return nil, fmt.Errorf("%w: got stock %d, want %d", ErrMalformedResponse, *raw.ID, productID)
	}

	return &domain.Stock{ProductID: productID, Amount: *raw.Amount}, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Debug("catalog returned an error", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// State exposes the breaker state
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}
