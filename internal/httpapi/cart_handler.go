package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yogesh832/dumpsexpert-checkout/internal/cart"
	"github.com/yogesh832/dumpsexpert-checkout/internal/pricing"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*cart.Cart, error)
	ReplaceCart(ctx context.Context, userID string, items []cart.CartItem) error
	AddItem(ctx context.Context, userID string, item cart.CartItem) error
	UpdateQuantity(ctx context.Context, userID, productID, productType string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID, productType string) error
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl"`
}

type UpdateQuantityRequestDTO struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

type ReplaceCartRequestDTO struct {
	Items []AddItemRequestDTO `json:"items"`
}

type CartResponseDTO struct {
	Items    []cart.CartItem `json:"items"`
	Subtotal float64         `json:"subtotal"`
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Missing user authentication")
		return
	}

	c, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		log.Printf("get cart error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	totals := pricing.ComputeTotals(c.Items, 0)
	items := c.Items
	if items == nil {
		items = []cart.CartItem{}
	}
	respondJSON(w, http.StatusOK, CartResponseDTO{
		Items:    items,
		Subtotal: totals.Subtotal,
	})
}

// PUT /api/cart
// Replaces the server-side cart wholesale, e.g. when the client pushes a
// cart built before login.
func (h *CartHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Missing user authentication")
		return
	}

	var req ReplaceCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Items) > 99 {
		respondMessage(w, http.StatusBadRequest, "too many items")
		return
	}

	items := make([]cart.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" || item.Type == "" {
			respondMessage(w, http.StatusBadRequest, "id and type are required for every item")
			return
		}
		if item.Price < 0 {
			respondMessage(w, http.StatusBadRequest, "price must not be negative")
			return
		}
		if item.Quantity <= 0 || item.Quantity > 99 {
			respondMessage(w, http.StatusBadRequest, "quantity must be between 1 and 99")
			return
		}
		items = append(items, cart.CartItem{
			ProductID:   item.ProductID,
			ProductType: item.Type,
			Title:       item.Title,
			Price:       item.Price,
			Quantity:    item.Quantity,
			ImageURL:    item.ImageURL,
		})
	}

	if err := h.carts.ReplaceCart(ctx, userID, items); err != nil {
		log.Printf("replace cart error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondMessage(w, http.StatusOK, "Cart replaced")
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.ProductID == "" || req.Type == "" {
		respondMessage(w, http.StatusBadRequest, "id and type are required")
		return
	}
	if req.Price < 0 {
		respondMessage(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondMessage(w, http.StatusBadRequest, "quantity must be between 1 and 99")
		return
	}

	err := h.carts.AddItem(ctx, userID, cart.CartItem{
		ProductID:   req.ProductID,
		ProductType: req.Type,
		Title:       req.Title,
		Price:       req.Price,
		Quantity:    req.Quantity,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		log.Printf("add item error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondMessage(w, http.StatusCreated, "Item added to cart")
}

// PUT /api/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondMessage(w, http.StatusBadRequest, "product id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Type == "" {
		respondMessage(w, http.StatusBadRequest, "type is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondMessage(w, http.StatusBadRequest, "quantity must be between 1 and 99")
		return
	}

	err := h.carts.UpdateQuantity(ctx, userID, productID, req.Type, req.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) || errors.Is(err, cart.ErrCartNotFound) {
			respondMessage(w, http.StatusNotFound, "Item not found in cart")
			return
		}
		log.Printf("update quantity error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondMessage(w, http.StatusOK, "Quantity updated")
}

// DELETE /api/cart/items/{product_id}?type=...
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")
	productType := r.URL.Query().Get("type")
	if productID == "" || productType == "" {
		respondMessage(w, http.StatusBadRequest, "product id and type are required")
		return
	}

	err := h.carts.RemoveItem(ctx, userID, productID, productType)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) || errors.Is(err, cart.ErrItemNotFound) {
			respondMessage(w, http.StatusNotFound, "Item not found in cart")
			return
		}
		log.Printf("remove item error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondMessage(w, http.StatusOK, "Item removed from cart")
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Missing user authentication")
		return
	}

	if err := h.carts.ClearCart(ctx, userID); err != nil {
		log.Printf("clear cart error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondMessage(w, http.StatusOK, "Cart cleared")
}
