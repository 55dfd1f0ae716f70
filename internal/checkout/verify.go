package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/yogesh832/dumpsexpert-checkout/internal/gateway"
	"github.com/yogesh832/dumpsexpert-checkout/internal/order"
)

type VerifyRequest struct {
	Gateway   gateway.Kind
	OrderID   string
	PaymentID string
	Signature string
	Amount    float64
	UserID    string
}

type VerifyResponse struct {
	PaymentID string
}

// Verify handles the gateway callback: the buyer finished (or claims to have
// finished) authorizing, so the intent moves CLIENT_AUTHORIZED, the payload
// is re-validated against the gateway, and on success the order is persisted
// exactly once and the cart cleared. A retried callback for an already
// persisted intent returns success without a second order.
func (o *Orchestrator) Verify(ctx context.Context, request *VerifyRequest) (*VerifyResponse, error) {
	flow, err := o.flow(request.Gateway)
	if err != nil {
		return nil, err
	}

	intent, err := o.repo.GetIntentByExternalOrderID(ctx, request.OrderID)
	if err != nil {
		return nil, err
	}

	if intent.Status.IsTerminal() {
		if intent.Status == IntentStatusPersisted {
			log.Printf("duplicate verification callback for intent %v, order already persisted", intent.ID)
			return &VerifyResponse{PaymentID: intent.PaymentID}, nil
		}
		// FAILED or CANCELLED: a late callback cannot revive the checkout.
		return nil, IllegalTransitionError
	}
	if intent.Status == IntentStatusVerified {
		// Payment already confirmed, only the order write is outstanding.
		return o.persist(ctx, intent)
	}

	// A retried callback finds the intent already CLIENT_AUTHORIZED when the
	// previous attempt died between authorization and verification.
	// Re-running the gateway check is idempotent, so only a fresh intent moves.
	if intent.Status != IntentStatusAuthorized {
		if !CanTransitionTo(intent.Status, IntentStatusAuthorized) {
			return nil, IllegalTransitionError
		}
		if err := o.repo.UpdateIntentStatus(ctx, intent.ID, IntentStatusAuthorized, ""); err != nil {
			return nil, err
		}
		intent.Status = IntentStatusAuthorized
	}

	if intent.Gateway != request.Gateway {
		return nil, o.fail(ctx, intent, "callback gateway does not match intent")
	}
	if request.Amount != intent.Amount {
		return nil, o.fail(ctx, intent,
			fmt.Sprintf("amount mismatch: callback %v, intent %v", request.Amount, intent.Amount))
	}
	if intent.UserID != request.UserID {
		return nil, o.fail(ctx, intent, "callback user does not match intent")
	}

	result, err := flow.Verify(ctx, gateway.VerifyRequest{
		OrderID:   request.OrderID,
		PaymentID: request.PaymentID,
		Signature: request.Signature,
		AmountINR: intent.Amount,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrVerificationFailed) {
			return nil, o.fail(ctx, intent, err.Error())
		}
		// Transient gateway trouble: leave the intent authorized so the
		// caller may retry the callback.
		return nil, fmt.Errorf("verification call failed: %w", err)
	}

	if err := o.repo.SetPayment(ctx, intent.ID, IntentStatusVerified, result.PaymentID); err != nil {
		return nil, err
	}
	intent.Status = IntentStatusVerified
	intent.PaymentID = result.PaymentID

	return o.persist(ctx, intent)
}

// persist writes the order for a VERIFIED intent. The cart is cleared only
// after the order row is durable; a duplicate payment id counts as durable.
func (o *Orchestrator) persist(ctx context.Context, intent *PaymentIntent) (*VerifyResponse, error) {
	var snapshot CartSnapshot
	if err := json.Unmarshal(intent.CartSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot for intent %v: %w", intent.ID, err)
	}

	newOrder := &order.Order{
		ID:            uuid.New(),
		UserID:        intent.UserID,
		PaymentMethod: string(intent.Gateway),
		PaymentID:     intent.PaymentID,
		TotalAmount:   snapshot.GrandTotal,
		Currency:      snapshot.Currency,
		Items:         snapshot.Items,
	}

	if err := o.orders.CreateOrder(ctx, newOrder); err != nil {
		if errors.Is(err, order.ErrDuplicatePayment) {
			if existing, lookupErr := o.orders.GetOrderByPaymentID(ctx, intent.PaymentID); lookupErr == nil {
				log.Printf("order %v for payment %v already exists, skipping", existing.ID, intent.PaymentID)
			} else {
				log.Printf("order for payment %v already exists, skipping", intent.PaymentID)
			}
		} else {
			// Payment went through but the order record did not. Keep the
			// intent VERIFIED for the recovery loop and manual reconciliation.
			log.Printf("RECONCILE: order write failed for verified intent %v payment %v: %v",
				intent.ID, intent.PaymentID, err)
			return &VerifyResponse{PaymentID: intent.PaymentID}, ErrConfirmationPending
		}
	}

	payload := map[string]interface{}{
		"intent_id":      intent.ID,
		"user_id":        intent.UserID,
		"payment_method": string(intent.Gateway),
		"payment_id":     intent.PaymentID,
		"items":          snapshot.Items,
		"total_amount":   snapshot.GrandTotal,
		"currency":       snapshot.Currency,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %w", err)
	}

	if err := o.repo.MarkPersisted(ctx, intent.ID, payloadJSON); err != nil {
		log.Printf("RECONCILE: failed to mark intent %v persisted: %v", intent.ID, err)
		return &VerifyResponse{PaymentID: intent.PaymentID}, ErrConfirmationPending
	}

	if err := o.carts.ClearCart(ctx, intent.UserID); err != nil {
		// Order is safe; a stale cart is an annoyance, not a correctness bug.
		log.Printf("failed to clear cart for user %v: %v", intent.UserID, err)
	}

	log.Printf("intent %v persisted: payment = %v", intent.ID, intent.PaymentID)
	return &VerifyResponse{PaymentID: intent.PaymentID}, nil
}

func (o *Orchestrator) fail(ctx context.Context, intent *PaymentIntent, reason string) error {
	if err := o.repo.UpdateIntentStatus(ctx, intent.ID, IntentStatusFailed, reason); err != nil {
		log.Printf("failed to mark intent %v failed: %v", intent.ID, err)
	}
	log.Printf("intent %v failed: %v", intent.ID, reason)
	return fmt.Errorf("%w: %s", gateway.ErrVerificationFailed, reason)
}
