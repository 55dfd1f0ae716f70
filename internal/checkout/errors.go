package checkout

import "errors"

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrIntentNotFound      = errors.New("payment intent not found")
	ErrNoPendingIntent     = errors.New("no pending payment intent")
	IllegalTransitionError = errors.New("illegal transition of intent status")

	// ErrConfirmationPending means payment was verified but the order write
	// failed; the intent stays VERIFIED and the recovery loop retries it.
	// Callers should tell the buyer payment succeeded and confirmation is
	// on its way, not that the payment failed.
	ErrConfirmationPending = errors.New("payment verified, order confirmation pending")
)
