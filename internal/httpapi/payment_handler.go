package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/yogesh832/dumpsexpert-checkout/internal/checkout"
	"github.com/yogesh832/dumpsexpert-checkout/internal/coupon"
	"github.com/yogesh832/dumpsexpert-checkout/internal/gateway"
)

type Orchestrator interface {
	CreateOrder(ctx context.Context, request *checkout.CreateOrderRequest) (*checkout.CreateOrderResponse, error)
	Verify(ctx context.Context, request *checkout.VerifyRequest) (*checkout.VerifyResponse, error)
	Cancel(ctx context.Context, userID string) error
}

type PaymentHandler struct {
	orchestrator Orchestrator
	timeout      time.Duration
}

func NewPaymentHandler(orchestrator Orchestrator, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		orchestrator: orchestrator,
		timeout:      timeout,
	}
}

type CreateOrderRequestDTO struct {
	UserID     string `json:"userId"`
	CouponCode string `json:"couponCode,omitempty"`
}

type CreateOrderResponseDTO struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type RazorpayVerifyRequestDTO struct {
	PaymentID string  `json:"razorpay_payment_id"`
	OrderID   string  `json:"razorpay_order_id"`
	Signature string  `json:"razorpay_signature"`
	Amount    float64 `json:"amount"`
	UserID    string  `json:"userId"`
}

type PayPalVerifyRequestDTO struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
	UserID  string  `json:"userId"`
}

type VerifyResponseDTO struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId,omitempty"`
	Message   string `json:"message,omitempty"`
}

type CancelRequestDTO struct {
	UserID string `json:"userId"`
}

// POST /api/payments/razorpay/create-order
func (h *PaymentHandler) CreateRazorpayOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, gateway.KindRazorpay)
}

// POST /api/payments/paypal/create-order
func (h *PaymentHandler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, gateway.KindPayPal)
}

func (h *PaymentHandler) createOrder(w http.ResponseWriter, r *http.Request, kind gateway.Kind) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		respondMessage(w, http.StatusBadRequest, "userId is required")
		return
	}

	resp, err := h.orchestrator.CreateOrder(ctx, &checkout.CreateOrderRequest{
		UserID:     req.UserID,
		Gateway:    kind,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			respondMessage(w, http.StatusBadRequest, "Cart is empty")
		case errors.Is(err, coupon.ErrMissingCode):
			respondMessage(w, http.StatusBadRequest, "Coupon code is required")
		case errors.Is(err, coupon.ErrCouponNotFound):
			respondMessage(w, http.StatusNotFound, "Coupon not found")
		case errors.Is(err, coupon.ErrNotActive):
			respondMessage(w, http.StatusBadRequest, "Coupon is expired or not yet active")
		case errors.Is(err, gateway.ErrGateway):
			log.Printf("order creation failed (request-id %s): %v", getRequestID(ctx), err)
			respondMessage(w, http.StatusBadGateway, "Payment initiation failed")
		default:
			log.Printf("order creation error (request-id %s): %v", getRequestID(ctx), err)
			respondMessage(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, CreateOrderResponseDTO{
		ID:       resp.ExternalOrderID,
		Amount:   resp.Amount,
		Currency: resp.Currency,
	})
}

// POST /api/payments/razorpay/verify
func (h *PaymentHandler) VerifyRazorpay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RazorpayVerifyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		respondMessage(w, http.StatusBadRequest, "Missing payment verification fields")
		return
	}

	h.verify(ctx, w, &checkout.VerifyRequest{
		Gateway:   gateway.KindRazorpay,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Amount:    req.Amount,
		UserID:    req.UserID,
	})
}

// POST /api/payments/paypal/verify
func (h *PaymentHandler) VerifyPayPal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PayPalVerifyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" {
		respondMessage(w, http.StatusBadRequest, "orderId is required")
		return
	}

	h.verify(ctx, w, &checkout.VerifyRequest{
		Gateway: gateway.KindPayPal,
		OrderID: req.OrderID,
		Amount:  req.Amount,
		UserID:  req.UserID,
	})
}

func (h *PaymentHandler) verify(ctx context.Context, w http.ResponseWriter, request *checkout.VerifyRequest) {
	resp, err := h.orchestrator.Verify(ctx, request)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrConfirmationPending):
			// Payment succeeded; only the order record is still on its way.
			respondJSON(w, http.StatusAccepted, VerifyResponseDTO{
				Success:   true,
				PaymentID: resp.PaymentID,
				Message:   "Payment received, order confirmation pending",
			})
		case errors.Is(err, checkout.ErrIntentNotFound):
			respondJSON(w, http.StatusNotFound, VerifyResponseDTO{
				Success: false,
				Message: "Unknown payment order",
			})
		case errors.Is(err, gateway.ErrVerificationFailed):
			respondJSON(w, http.StatusBadRequest, VerifyResponseDTO{
				Success: false,
				Message: "Payment verification failed",
			})
		default:
			log.Printf("payment verification error (request-id %s): %v", getRequestID(ctx), err)
			respondJSON(w, http.StatusInternalServerError, VerifyResponseDTO{
				Success: false,
				Message: "Payment verification failed",
			})
		}
		return
	}

	respondJSON(w, http.StatusOK, VerifyResponseDTO{
		Success:   true,
		PaymentID: resp.PaymentID,
	})
}

// POST /api/payments/cancel
func (h *PaymentHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CancelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		respondMessage(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.orchestrator.Cancel(ctx, req.UserID); err != nil {
		if errors.Is(err, checkout.ErrNoPendingIntent) {
			respondMessage(w, http.StatusNotFound, "No pending payment to cancel")
			return
		}
		log.Printf("payment cancel error (request-id %s): %v", getRequestID(ctx), err)
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondMessage(w, http.StatusOK, "Payment cancelled")
}
