package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func newRouter(logger *zap.Logger, timeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// NewCartRouter exposes the cart operations to the storefront
func NewCartRouter(h *CartHandler, logger *zap.Logger, timeout time.Duration) http.Handler {
	r := newRouter(logger, timeout)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{product_id}", h.UpdateAmount)
			r.Delete("/items/{product_id}", h.RemoveItem)
		})
	})

	return otelhttp.NewHandler(r, "cart")
}

// NewCatalogRouter serves the development catalog
func NewCatalogRouter(h *CatalogHandler, logger *zap.Logger, timeout time.Duration) http.Handler {
	r := newRouter(logger, timeout)

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/stock/{id}", h.GetStock)
	r.Put("/stock/{id}", h.SetStock)

	return otelhttp.NewHandler(r, "catalog")
}
