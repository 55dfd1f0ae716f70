package gateway

import (
	"context"
	"errors"
)

type Kind string

const (
	KindRazorpay Kind = "razorpay"
	KindPayPal   Kind = "paypal"
)

var (
	// ErrGateway covers order creation or capture calls that failed at the
	// processor; internals are logged, never surfaced to the buyer.
	ErrGateway = errors.New("gateway request failed")
	// ErrVerificationFailed means the callback payload did not check out
	// against the gateway's own records (bad signature, wrong amount,
	// capture refused).
	ErrVerificationFailed = errors.New("payment verification failed")
)

// OrderHandle is the opaque order the gateway hands back on creation.
// Amount is in the gateway's wire unit: integer paise for Razorpay,
// a two-decimal USD value for PayPal.
type OrderHandle struct {
	ID       string
	Amount   float64
	Currency string
}

type VerifyRequest struct {
	OrderID   string
	PaymentID string // Razorpay callback only
	Signature string // Razorpay callback only
	AmountINR float64
}

type VerifyResult struct {
	PaymentID string
}

// Flow is one payment gateway's create/verify handshake. Both gateways
// converge on the same order-created / verified semantics; where the
// authorization happens (native modal vs embedded buttons with a capture
// step) is the flow's own business.
type Flow interface {
	Kind() Kind
	CreateOrder(ctx context.Context, amountINR float64) (*OrderHandle, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}
