package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketshoes/cart/internal/inventory"
)

// CatalogHandler serves products and stock levels in the shape the cart's
// catalog client reads them.
type CatalogHandler struct {
	store inventory.Store
}

func NewCatalogHandler(store inventory.Store) *CatalogHandler {
	return &CatalogHandler{store: store}
}

type SetStockRequestDTO struct {
	Amount *int `json:"amount"`
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.ListProducts())
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	product, err := h.store.GetProduct(productID)
	if err != nil {
		handleInventoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	stock, err := h.store.GetStock(productID)
	if err != nil {
		handleInventoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

func (h *CatalogHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	var req SetStockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount == nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount is required")
		return
	}

	if err := h.store.SetStock(productID, *req.Amount); err != nil {
		handleInventoryError(w, err)
		return
	}

	stock, err := h.store.GetStock(productID)
	if err != nil {
		handleInventoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

func handleInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, inventory.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
