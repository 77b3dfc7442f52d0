package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/service"
)

// CatalogService answers the product and category routes.
type CatalogService interface {
	QueryProducts(ctx context.Context, q entity.ProductQuery) (*entity.ProductPage, error)
	GetProduct(ctx context.Context, idOrSlug string) (*entity.Product, error)
	FeaturedProducts(ctx context.Context, limit int) ([]entity.Product, error)
	ProductsByCategory(ctx context.Context, slug string, q entity.ProductQuery) (*entity.Category, *entity.ProductPage, error)
	Categories(ctx context.Context) ([]entity.Category, error)
	GetCategory(ctx context.Context, idOrSlug string) (*entity.Category, error)
}

// CartService answers the cart routes.
type CartService interface {
	Cart(ctx context.Context, sessionID string) entity.Cart
	AddItem(ctx context.Context, sessionID, productID string, quantity int, variants map[string]string) (entity.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (entity.Cart, error)
	RemoveItem(ctx context.Context, sessionID, lineID string) entity.Cart
	Clear(ctx context.Context, sessionID string) entity.Cart
	ItemCount(ctx context.Context, sessionID string) int
}

// OrderService answers checkout and order history.
type OrderService interface {
	Checkout(ctx context.Context, sessionID string) (*entity.Order, error)
	RecentOrders(ctx context.Context, sessionID string, limit int) ([]entity.Order, error)
}

// Handler handles HTTP requests for the application.
type Handler struct {
	catalog    CatalogService
	carts      CartService
	orders     OrderService
	sessionTTL time.Duration
}

func NewHandler(catalog CatalogService, carts CartService, orders OrderService, sessionTTL time.Duration) *Handler {
	return &Handler{
		catalog:    catalog,
		carts:      carts,
		orders:     orders,
		sessionTTL: sessionTTL,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.handleGetProducts)
	mux.HandleFunc("GET /api/products/featured", h.handleGetFeatured)
	mux.HandleFunc("GET /api/products/category/{slug}", h.handleGetProductsByCategory)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)
	mux.HandleFunc("GET /api/categories", h.handleGetCategories)
	mux.HandleFunc("GET /api/categories/{id}", h.handleGetCategory)

	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("GET /api/cart/count", h.handleGetCartCount)
	mux.HandleFunc("POST /api/cart/items", h.handleAddItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.handleUpdateItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.handleRemoveItem)
	mux.HandleFunc("DELETE /api/cart", h.handleClearCart)
	mux.HandleFunc("POST /api/cart/checkout", h.handleCheckout)

	mux.HandleFunc("GET /api/orders", h.handleGetOrders)
}

// envelope is the body of every response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidQuantity),
		errors.Is(err, entity.ErrInvalidProduct),
		errors.Is(err, entity.ErrInvalidQuery):
		writeFail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrProductNotFound),
		errors.Is(err, entity.ErrCategoryNotFound):
		writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, entity.ErrInsufficientStock):
		writeFail(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeFail(w, http.StatusInternalServerError, "internal server error")
	}
}
