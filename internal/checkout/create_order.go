package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yogesh832/dumpsexpert-checkout/internal/cart"
	"github.com/yogesh832/dumpsexpert-checkout/internal/gateway"
	"github.com/yogesh832/dumpsexpert-checkout/internal/order"
	"github.com/yogesh832/dumpsexpert-checkout/internal/pricing"
)

type CreateOrderRequest struct {
	UserID     string
	Gateway    gateway.Kind
	CouponCode string
}

type CreateOrderResponse struct {
	IntentID        uuid.UUID
	ExternalOrderID string
	Amount          float64
	Currency        string
}

// CreateOrder prices the cart, applies the coupon if one was given, creates
// the gateway-side order and records a new ORDER_CREATED intent. A pending
// intent for the same user is cancelled first: only one checkout attempt may
// be in flight per session.
func (o *Orchestrator) CreateOrder(ctx context.Context, request *CreateOrderRequest) (*CreateOrderResponse, error) {
	flow, err := o.flow(request.Gateway)
	if err != nil {
		return nil, err
	}

	userCart, err := o.carts.GetCart(ctx, request.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if len(userCart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var discount float64
	if request.CouponCode != "" {
		c, errCoupon := o.coupons.Validate(ctx, request.CouponCode)
		if errCoupon != nil {
			return nil, errCoupon
		}
		discount = c.Discount
	}

	totals := pricing.ComputeTotals(userCart.Items, discount)

	if errCancel := o.cancelPending(ctx, request.UserID); errCancel != nil {
		return nil, errCancel
	}

	handle, err := flow.CreateOrder(ctx, totals.GrandTotal)
	if err != nil {
		// Nothing was persisted yet; the caller can retry or switch gateways.
		return nil, fmt.Errorf("order creation failed: %w", err)
	}

	snapshot := buildSnapshot(userCart.Items, totals)
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          request.UserID,
		Gateway:         request.Gateway,
		Amount:          totals.GrandTotal,
		ChargeAmount:    handle.Amount,
		Currency:        handle.Currency,
		ExternalOrderID: handle.ID,
		Status:          IntentStatusOrderCreated,
		CartSnapshot:    snapshotJSON,
	}
	if err := o.repo.CreateIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	log.Printf("intent %v created: gateway = %v order = %v amount = %v %v",
		intent.ID, request.Gateway, handle.ID, handle.Amount, handle.Currency)

	return &CreateOrderResponse{
		IntentID:        intent.ID,
		ExternalOrderID: handle.ID,
		Amount:          handle.Amount,
		Currency:        handle.Currency,
	}, nil
}

// Cancel abandons the user's pending intent, returning the session to idle.
// The cart is left untouched.
func (o *Orchestrator) Cancel(ctx context.Context, userID string) error {
	intent, err := o.repo.GetPendingIntentByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			return ErrNoPendingIntent
		}
		return fmt.Errorf("failed to look up pending intent: %w", err)
	}

	if !CanTransitionTo(intent.Status, IntentStatusCancelled) {
		return IllegalTransitionError
	}
	return o.repo.UpdateIntentStatus(ctx, intent.ID, IntentStatusCancelled, "cancelled by user")
}

func (o *Orchestrator) cancelPending(ctx context.Context, userID string) error {
	pending, err := o.repo.GetPendingIntentByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up pending intent: %w", err)
	}

	log.Printf("superseding pending intent %v (status = %v)", pending.ID, pending.Status)
	return o.repo.UpdateIntentStatus(ctx, pending.ID, IntentStatusCancelled, "superseded by new checkout")
}

func buildSnapshot(items []cart.CartItem, totals pricing.Totals) *CartSnapshot {
	snapshot := &CartSnapshot{
		Items:      make([]order.OrderItem, 0, len(items)),
		Subtotal:   totals.Subtotal,
		Discount:   totals.Discount,
		GrandTotal: totals.GrandTotal,
		Currency:   "INR",
		CapturedAt: time.Now(),
	}
	for _, item := range items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		snapshot.Items = append(snapshot.Items, order.OrderItem{
			ProductID:   item.ProductID,
			ProductType: item.ProductType,
			Title:       item.Title,
			Price:       item.Price,
			Quantity:    quantity,
			ImageURL:    item.ImageURL,
		})
	}
	return snapshot
}
