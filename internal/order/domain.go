package order

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a snapshot of a cart line at purchase time, not a live
// reference to the cart.
type OrderItem struct {
	ProductID   string  `json:"id"`
	ProductType string  `json:"type"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	ImageURL    string  `json:"imageUrl"`
}

// Order is created exactly once per verified payment and is immutable
// thereafter. PaymentID carries the gateway's payment/capture id and is
// unique across orders.
type Order struct {
	ID            uuid.UUID
	UserID        string
	PaymentMethod string
	PaymentID     string
	TotalAmount   float64
	Currency      string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
