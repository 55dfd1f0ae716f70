package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/yogesh832/dumpsexpert-checkout/internal/gateway"
	"github.com/yogesh832/dumpsexpert-checkout/internal/order"
)

// PaymentIntent records one checkout attempt's progress through the gateway
// lifecycle. Amount is the grand total in INR as priced at creation time;
// ChargeAmount/Currency are what went over the wire to the gateway.
type PaymentIntent struct {
	ID              uuid.UUID
	UserID          string
	Gateway         gateway.Kind
	Amount          float64
	ChargeAmount    float64
	Currency        string
	ExternalOrderID string
	PaymentID       string
	Status          IntentStatus
	FailureReason   string
	CartSnapshot    []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CartSnapshot is the cart state frozen at checkout time. It becomes the
// order's item list on persistence.
type CartSnapshot struct {
	Items      []order.OrderItem `json:"items"`
	Subtotal   float64           `json:"subtotal"`
	Discount   float64           `json:"discount"`
	GrandTotal float64           `json:"grand_total"`
	Currency   string            `json:"currency"`
	CapturedAt time.Time         `json:"captured_at"`
}
