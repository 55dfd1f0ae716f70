package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yogesh832/dumpsexpert-checkout/internal/order"
)

type OrderReader interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*order.Order, error)
}

type OrdersHandler struct {
	orders  OrderReader
	timeout time.Duration
}

func NewOrdersHandler(orders OrderReader, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderResponseDTO struct {
	ID            string            `json:"id"`
	PaymentMethod string            `json:"paymentMethod"`
	PaymentID     string            `json:"paymentId"`
	TotalAmount   float64           `json:"totalAmount"`
	Currency      string            `json:"currency"`
	Items         []order.OrderItem `json:"items"`
	CreatedAt     string            `json:"createdAt"`
}

func convertOrder(o *order.Order) OrderResponseDTO {
	items := o.Items
	if items == nil {
		items = []order.OrderItem{}
	}
	return OrderResponseDTO{
		ID:            o.ID.String(),
		PaymentMethod: o.PaymentMethod,
		PaymentID:     o.PaymentID,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		Items:         items,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Missing user authentication")
		return
	}

	orders, err := h.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		log.Printf("list orders error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Missing user authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	o, err := h.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondMessage(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("get order error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	if o.UserID != userID {
		respondMessage(w, http.StatusNotFound, "Order not found")
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(o))
}
