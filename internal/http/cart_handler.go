package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rocketshoes/cart/internal/cart"
	"github.com/rocketshoes/cart/internal/catalog"
	"github.com/rocketshoes/cart/internal/domain"
	"github.com/rocketshoes/cart/internal/notify"
	"github.com/shopspring/decimal"
)

// CartStore is the part of cart.Store the handlers use. Mutations return
// the cart they committed.
type CartStore interface {
	Cart() domain.Cart
	AddProduct(ctx context.Context, productID int64) (domain.Cart, error)
	RemoveProduct(ctx context.Context, productID int64) (domain.Cart, error)
	UpdateProductAmount(ctx context.Context, update domain.AmountUpdate) (domain.Cart, error)
}

type CartHandler struct {
	store   CartStore
	timeout time.Duration
}

func NewCartHandler(store CartStore, timeout time.Duration) *CartHandler {
	return &CartHandler{
		store:   store,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateAmountRequestDTO struct {
	Amount *int `json:"amount"`
}

// CartResponse is the cart plus the figures the storefront header and the
// cart page display
type CartResponse struct {
	Items domain.Cart     `json:"items"`
	Size  int             `json:"size"`
	Total decimal.Decimal `json:"total"`
}

func newCartResponse(c domain.Cart) CartResponse {
	if c == nil {
		c = domain.Cart{}
	}
	return CartResponse{Items: c, Size: c.Size(), Total: c.Total()}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newCartResponse(h.store.Cart()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	c, err := h.store.AddProduct(ctx, req.ProductID)
	if err != nil {
		handleStoreError(w, err, notify.MsgAddFailed)
		return
	}

	respondJSON(w, http.StatusCreated, newCartResponse(c))
}

// UpdateAmount sets the amount of an item. Amounts below 1 leave the cart
// untouched and still answer 200.
func (h *CartHandler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req UpdateAmountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount == nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount is required")
		return
	}

	c, err := h.store.UpdateProductAmount(ctx, domain.AmountUpdate{ProductID: productID, Amount: *req.Amount})
	if err != nil {
		handleStoreError(w, err, notify.MsgUpdateFailed)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	c, err := h.store.RemoveProduct(ctx, productID)
	if err != nil {
		handleStoreError(w, err, notify.MsgRemoveFailed)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(c))
}

// handleStoreError converts store errors to HTTP responses. The error text
// is the notification the shopper saw; failMsg is used for failed operations.
func handleStoreError(w http.ResponseWriter, err error, failMsg string) {
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", notify.MsgOutOfStock)
	case errors.Is(err, cart.ErrNotInCart):
		respondError(w, http.StatusNotFound, "not_found", notify.MsgRemoveFailed)
	case errors.Is(err, cart.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "cart is shutting down")
	case errors.Is(err, catalog.ErrNotFound):
		respondErrorDetails(w, http.StatusNotFound, "product_not_found", failMsg, err.Error())
	case errors.Is(err, catalog.ErrUnavailable):
		respondErrorDetails(w, http.StatusBadGateway, "catalog_unavailable", failMsg, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondErrorDetails(w, http.StatusGatewayTimeout, "timeout", failMsg, err.Error())
	default:
		respondErrorDetails(w, http.StatusInternalServerError, "internal_error", failMsg, err.Error())
	}
}
