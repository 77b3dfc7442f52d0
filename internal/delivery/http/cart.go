package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/google/uuid"
)

const (
	sessionHeader    = "X-Cart-Session"
	sessionCookie    = "cart_session"
	maxSessionIDSize = 128
)

// sessionID picks the cart session from the header or cookie, minting one when
// neither carries a usable id. The id is echoed back on both.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}
	if !validSessionID(id) {
		id = uuid.NewString()
	}

	w.Header().Set(sessionHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// validSessionID accepts 1 to 128 characters of [A-Za-z0-9_-], which are safe
// in both a header and a cookie value.
func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDSize {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// cartView is the cart as rendered to clients.
type cartView struct {
	entity.Cart
	ItemCount int `json:"itemCount"`
}

func newCartView(c entity.Cart) cartView {
	return cartView{Cart: c, ItemCount: c.ItemCount()}
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)
	writeOK(w, http.StatusOK, "", newCartView(h.carts.Cart(r.Context(), sessionID)))
}

func (h *Handler) handleGetCartCount(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)
	writeOK(w, http.StatusOK, "", map[string]int{"count": h.carts.ItemCount(r.Context(), sessionID)})
}

type AddItemRequest struct {
	ProductID string            `json:"productId"`
	Quantity  *float64          `json:"quantity"`
	Variants  map[string]string `json:"variants"`
}

type UpdateQuantityRequest struct {
	Quantity *float64 `json:"quantity"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)

	var req AddItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProductID == "" {
		writeFail(w, http.StatusBadRequest, "productId is required")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		var err error
		if quantity, err = entity.ParseQuantity(*req.Quantity); err != nil {
			writeError(w, r, err)
			return
		}
	}

	cart, err := h.carts.AddItem(r.Context(), sessionID, req.ProductID, quantity, req.Variants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Item added to cart", newCartView(cart))
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)

	var req UpdateQuantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity == nil {
		writeFail(w, http.StatusBadRequest, "quantity is required")
		return
	}
	quantity, err := entity.ParseQuantity(*req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cart, err := h.carts.UpdateQuantity(r.Context(), sessionID, r.PathValue("id"), quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cart updated", newCartView(cart))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)
	cart := h.carts.RemoveItem(r.Context(), sessionID, r.PathValue("id"))
	writeOK(w, http.StatusOK, "Item removed from cart", newCartView(cart))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)
	cart := h.carts.Clear(r.Context(), sessionID)
	writeOK(w, http.StatusOK, "Cart cleared", newCartView(cart))
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)
	order, err := h.orders.Checkout(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Order placed", order)
}

func (h *Handler) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)
	limit, err := intParam(r.URL.Query(), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders, err := h.orders.RecentOrders(r.Context(), sessionID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", orders)
}
