package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogesh832/dumpsexpert-checkout/internal/cart"
	"github.com/yogesh832/dumpsexpert-checkout/internal/coupon"
	"github.com/yogesh832/dumpsexpert-checkout/internal/gateway"
	"github.com/yogesh832/dumpsexpert-checkout/internal/order"
)

func testCart() *cart.Cart {
	return &cart.Cart{
		UserID: "user-1",
		Items: []cart.CartItem{
			{ProductID: "p1", ProductType: "exam", Title: "AWS SAA", Price: 400, Quantity: 2},
			{ProductID: "p2", ProductType: "course", Title: "K8s Basics", Price: 200, Quantity: 1},
		},
	}
}

func testRazorpayFlow() *MockFlow {
	return &MockFlow{
		FlowKind: gateway.KindRazorpay,
		Handle:   &gateway.OrderHandle{ID: "order_rzp_1", Amount: 100000, Currency: "INR"},
		Result:   &gateway.VerifyResult{PaymentID: "pay_1"},
	}
}

func verifiedSnapshot(t *testing.T) []byte {
	t.Helper()
	snapshot := CartSnapshot{
		Items: []order.OrderItem{
			{ProductID: "p1", ProductType: "exam", Title: "AWS SAA", Price: 400, Quantity: 2},
		},
		Subtotal:   800,
		GrandTotal: 800,
		Currency:   "INR",
	}
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	return data
}

func TestCreateOrder_Success(t *testing.T) {
	repo := &MockRepository{}
	carts := &MockCartProvider{Cart: testCart()}
	flow := testRazorpayFlow()
	svc := newTestOrchestrator(repo, carts, &MockCouponValidator{}, &MockOrderWriter{}, flow)

	resp, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:  "user-1",
		Gateway: gateway.KindRazorpay,
	})

	require.NoError(t, err)
	assert.Equal(t, "order_rzp_1", resp.ExternalOrderID)
	assert.Equal(t, 100000.0, resp.Amount)
	assert.Equal(t, "INR", resp.Currency)

	require.NotNil(t, repo.CreatedIntent)
	assert.Equal(t, IntentStatusOrderCreated, repo.CreatedIntent.Status)
	assert.Equal(t, 1000.0, repo.CreatedIntent.Amount) // grand total in INR
	assert.Equal(t, 1000.0, flow.CreateAmount)

	var snapshot CartSnapshot
	require.NoError(t, json.Unmarshal(repo.CreatedIntent.CartSnapshot, &snapshot))
	assert.Len(t, snapshot.Items, 2)
	assert.Equal(t, 1000.0, snapshot.GrandTotal)
}

func TestCreateOrder_WithCoupon(t *testing.T) {
	repo := &MockRepository{}
	carts := &MockCartProvider{Cart: testCart()}
	coupons := &MockCouponValidator{Coupon: &coupon.Coupon{Code: "SAVE150", Discount: 150}}
	flow := testRazorpayFlow()
	svc := newTestOrchestrator(repo, carts, coupons, &MockOrderWriter{}, flow)

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:     "user-1",
		Gateway:    gateway.KindRazorpay,
		CouponCode: "SAVE150",
	})

	require.NoError(t, err)
	assert.Equal(t, 850.0, flow.CreateAmount) // 1000 - 150
	assert.Equal(t, 850.0, repo.CreatedIntent.Amount)
}

func TestCreateOrder_InvalidCoupon(t *testing.T) {
	repo := &MockRepository{}
	carts := &MockCartProvider{Cart: testCart()}
	coupons := &MockCouponValidator{Err: coupon.ErrNotActive}
	svc := newTestOrchestrator(repo, carts, coupons, &MockOrderWriter{}, testRazorpayFlow())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:     "user-1",
		Gateway:    gateway.KindRazorpay,
		CouponCode: "OLD",
	})

	assert.ErrorIs(t, err, coupon.ErrNotActive)
	assert.Nil(t, repo.CreatedIntent) // nothing persisted
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	repo := &MockRepository{}
	carts := &MockCartProvider{Cart: &cart.Cart{UserID: "user-1"}}
	svc := newTestOrchestrator(repo, carts, &MockCouponValidator{}, &MockOrderWriter{}, testRazorpayFlow())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:  "user-1",
		Gateway: gateway.KindRazorpay,
	})

	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrder_UnknownGateway(t *testing.T) {
	svc := newTestOrchestrator(&MockRepository{}, &MockCartProvider{Cart: testCart()},
		&MockCouponValidator{}, &MockOrderWriter{}, testRazorpayFlow())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:  "user-1",
		Gateway: gateway.Kind("stripe"),
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown payment gateway")
}

func TestCreateOrder_GatewayFailure(t *testing.T) {
	repo := &MockRepository{}
	flow := testRazorpayFlow()
	flow.CreateErr = gateway.ErrGateway
	svc := newTestOrchestrator(repo, &MockCartProvider{Cart: testCart()},
		&MockCouponValidator{}, &MockOrderWriter{}, flow)

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:  "user-1",
		Gateway: gateway.KindRazorpay,
	})

	assert.ErrorIs(t, err, gateway.ErrGateway)
	assert.Nil(t, repo.CreatedIntent) // no intent recorded for a failed gateway order
}

func TestCreateOrder_SupersedesPendingIntent(t *testing.T) {
	pending := &PaymentIntent{
		ID:     uuid.New(),
		UserID: "user-1",
		Status: IntentStatusOrderCreated,
	}
	repo := &MockRepository{PendingIntent: pending}
	svc := newTestOrchestrator(repo, &MockCartProvider{Cart: testCart()},
		&MockCouponValidator{}, &MockOrderWriter{}, testRazorpayFlow())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:  "user-1",
		Gateway: gateway.KindRazorpay,
	})

	require.NoError(t, err)
	assert.Equal(t, IntentStatusCancelled, repo.UpdatedStatus)
	assert.Equal(t, "superseded by new checkout", repo.UpdatedReason)
}

func TestVerify_Success(t *testing.T) {
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		Amount:          800,
		ExternalOrderID: "order_rzp_1",
		Status:          IntentStatusOrderCreated,
		CartSnapshot:    verifiedSnapshot(t),
	}
	repo := &MockRepository{Intent: intent}
	carts := &MockCartProvider{Cart: testCart()}
	orders := &MockOrderWriter{}
	svc := newTestOrchestrator(repo, carts, &MockCouponValidator{}, orders, testRazorpayFlow())

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway:   gateway.KindRazorpay,
		OrderID:   "order_rzp_1",
		PaymentID: "pay_1",
		Signature: "sig",
		Amount:    800,
		UserID:    "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pay_1", resp.PaymentID)

	require.NotNil(t, orders.Created)
	assert.Equal(t, "user-1", orders.Created.UserID)
	assert.Equal(t, "razorpay", orders.Created.PaymentMethod)
	assert.Equal(t, "pay_1", orders.Created.PaymentID)
	assert.Equal(t, 800.0, orders.Created.TotalAmount)

	assert.Equal(t, intent.ID, repo.PersistedID)
	assert.NotEmpty(t, repo.PersistedEvent)
	assert.True(t, carts.Cleared)
}

func TestVerify_SignatureMismatch(t *testing.T) {
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		Amount:          800,
		ExternalOrderID: "order_rzp_1",
		Status:          IntentStatusOrderCreated,
		CartSnapshot:    verifiedSnapshot(t),
	}
	repo := &MockRepository{Intent: intent}
	flow := testRazorpayFlow()
	flow.VerifyErr = gateway.ErrVerificationFailed
	orders := &MockOrderWriter{}
	carts := &MockCartProvider{Cart: testCart()}
	svc := newTestOrchestrator(repo, carts, &MockCouponValidator{}, orders, flow)

	_, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway:   gateway.KindRazorpay,
		OrderID:   "order_rzp_1",
		PaymentID: "pay_1",
		Signature: "bad-sig",
		Amount:    800,
		UserID:    "user-1",
	})

	assert.ErrorIs(t, err, gateway.ErrVerificationFailed)
	assert.Equal(t, IntentStatusFailed, repo.UpdatedStatus)
	assert.Zero(t, orders.Calls)     // no order for a failed verification
	assert.False(t, carts.Cleared)   // cart is retained for retry
}

func TestVerify_AmountMismatch(t *testing.T) {
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		Amount:          800,
		ExternalOrderID: "order_rzp_1",
		Status:          IntentStatusOrderCreated,
		CartSnapshot:    verifiedSnapshot(t),
	}
	repo := &MockRepository{Intent: intent}
	orders := &MockOrderWriter{}
	svc := newTestOrchestrator(repo, &MockCartProvider{Cart: testCart()},
		&MockCouponValidator{}, orders, testRazorpayFlow())

	_, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway:   gateway.KindRazorpay,
		OrderID:   "order_rzp_1",
		PaymentID: "pay_1",
		Signature: "sig",
		Amount:    999, // does not match the intent
		UserID:    "user-1",
	})

	assert.ErrorIs(t, err, gateway.ErrVerificationFailed)
	assert.Equal(t, IntentStatusFailed, repo.UpdatedStatus)
	assert.Zero(t, orders.Calls)
}

func TestVerify_UnknownOrder(t *testing.T) {
	svc := newTestOrchestrator(&MockRepository{}, &MockCartProvider{},
		&MockCouponValidator{}, &MockOrderWriter{}, testRazorpayFlow())

	_, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway: gateway.KindRazorpay,
		OrderID: "no-such-order",
	})

	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestVerify_AlreadyPersisted(t *testing.T) {
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		ExternalOrderID: "order_rzp_1",
		PaymentID:       "pay_1",
		Status:          IntentStatusPersisted,
	}
	repo := &MockRepository{Intent: intent}
	orders := &MockOrderWriter{}
	svc := newTestOrchestrator(repo, &MockCartProvider{}, &MockCouponValidator{}, orders, testRazorpayFlow())

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway: gateway.KindRazorpay,
		OrderID: "order_rzp_1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pay_1", resp.PaymentID)
	assert.Zero(t, orders.Calls) // no second order from a retried callback
}

func TestVerify_DuplicatePaymentTreatedAsPersisted(t *testing.T) {
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		Amount:          800,
		ExternalOrderID: "order_rzp_1",
		Status:          IntentStatusOrderCreated,
		CartSnapshot:    verifiedSnapshot(t),
	}
	repo := &MockRepository{Intent: intent}
	orders := &MockOrderWriter{
		Err:      order.ErrDuplicatePayment,
		Existing: &order.Order{ID: uuid.New(), UserID: "user-1", PaymentID: "pay_1"},
	}
	carts := &MockCartProvider{Cart: testCart()}
	svc := newTestOrchestrator(repo, carts, &MockCouponValidator{}, orders, testRazorpayFlow())

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway:   gateway.KindRazorpay,
		OrderID:   "order_rzp_1",
		PaymentID: "pay_1",
		Signature: "sig",
		Amount:    800,
		UserID:    "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pay_1", resp.PaymentID)
	assert.Equal(t, "pay_1", orders.LookedUp) // existing order confirmed
	assert.Equal(t, intent.ID, repo.PersistedID)
	assert.True(t, carts.Cleared)
}

func TestVerify_RetriedCallbackAfterTransientError(t *testing.T) {
	// A previous callback died between authorization and verification, so the
	// intent is already CLIENT_AUTHORIZED. The retry must reach the gateway
	// again instead of being rejected as an illegal transition.
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		Amount:          800,
		ExternalOrderID: "order_rzp_1",
		Status:          IntentStatusAuthorized,
		CartSnapshot:    verifiedSnapshot(t),
	}
	repo := &MockRepository{Intent: intent}
	orders := &MockOrderWriter{}
	carts := &MockCartProvider{Cart: testCart()}
	svc := newTestOrchestrator(repo, carts, &MockCouponValidator{}, orders, testRazorpayFlow())

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway:   gateway.KindRazorpay,
		OrderID:   "order_rzp_1",
		PaymentID: "pay_1",
		Signature: "sig",
		Amount:    800,
		UserID:    "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pay_1", resp.PaymentID)
	assert.Equal(t, 1, orders.Calls)
	assert.Equal(t, intent.ID, repo.PersistedID)
	assert.True(t, carts.Cleared)
}

func TestVerify_CallbackForCancelledIntent(t *testing.T) {
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		Amount:          800,
		ExternalOrderID: "order_rzp_1",
		Status:          IntentStatusCancelled,
	}
	repo := &MockRepository{Intent: intent}
	orders := &MockOrderWriter{}
	svc := newTestOrchestrator(repo, &MockCartProvider{}, &MockCouponValidator{}, orders, testRazorpayFlow())

	_, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway: gateway.KindRazorpay,
		OrderID: "order_rzp_1",
		Amount:  800,
		UserID:  "user-1",
	})

	assert.ErrorIs(t, err, IllegalTransitionError)
	assert.Zero(t, orders.Calls)
}

func TestVerify_OrderWriteFailureKeepsIntentVerified(t *testing.T) {
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		Amount:          800,
		ExternalOrderID: "order_rzp_1",
		Status:          IntentStatusOrderCreated,
		CartSnapshot:    verifiedSnapshot(t),
	}
	repo := &MockRepository{Intent: intent}
	orders := &MockOrderWriter{Err: errors.New("postgres down")}
	carts := &MockCartProvider{Cart: testCart()}
	svc := newTestOrchestrator(repo, carts, &MockCouponValidator{}, orders, testRazorpayFlow())

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway:   gateway.KindRazorpay,
		OrderID:   "order_rzp_1",
		PaymentID: "pay_1",
		Signature: "sig",
		Amount:    800,
		UserID:    "user-1",
	})

	assert.ErrorIs(t, err, ErrConfirmationPending)
	require.NotNil(t, resp) // payment id still reported to the caller
	assert.Equal(t, "pay_1", resp.PaymentID)
	assert.Equal(t, IntentStatusVerified, repo.UpdatedStatus)
	assert.Zero(t, repo.PersistedID) // not marked persisted
	assert.False(t, carts.Cleared)
}

func TestVerify_TransientGatewayErrorLeavesIntentAuthorized(t *testing.T) {
	intent := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindPayPal,
		Amount:          800,
		ExternalOrderID: "PP-ORDER-1",
		Status:          IntentStatusOrderCreated,
		CartSnapshot:    verifiedSnapshot(t),
	}
	repo := &MockRepository{Intent: intent}
	flow := &MockFlow{
		FlowKind:  gateway.KindPayPal,
		VerifyErr: errors.New("connection reset"),
	}
	svc := newTestOrchestrator(repo, &MockCartProvider{}, &MockCouponValidator{}, &MockOrderWriter{}, flow)

	_, err := svc.Verify(context.Background(), &VerifyRequest{
		Gateway: gateway.KindPayPal,
		OrderID: "PP-ORDER-1",
		Amount:  800,
		UserID:  "user-1",
	})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, gateway.ErrVerificationFailed)
	assert.Equal(t, IntentStatusAuthorized, repo.UpdatedStatus) // retryable
}

func TestCancel_PendingIntent(t *testing.T) {
	pending := &PaymentIntent{
		ID:     uuid.New(),
		UserID: "user-1",
		Status: IntentStatusOrderCreated,
	}
	repo := &MockRepository{PendingIntent: pending}
	svc := newTestOrchestrator(repo, &MockCartProvider{}, &MockCouponValidator{}, &MockOrderWriter{}, testRazorpayFlow())

	err := svc.Cancel(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, IntentStatusCancelled, repo.UpdatedStatus)
	assert.Equal(t, "cancelled by user", repo.UpdatedReason)
}

func TestCancel_NoPendingIntent(t *testing.T) {
	svc := newTestOrchestrator(&MockRepository{}, &MockCartProvider{}, &MockCouponValidator{}, &MockOrderWriter{}, testRazorpayFlow())

	err := svc.Cancel(context.Background(), "user-1")

	assert.ErrorIs(t, err, ErrNoPendingIntent)
}

func TestExpirePending_FailsStaleIntents(t *testing.T) {
	stale := &PaymentIntent{
		ID:     uuid.New(),
		UserID: "user-1",
		Status: IntentStatusOrderCreated,
	}
	repo := &MockRepository{ExpiredIntents: []*PaymentIntent{stale}}
	svc := newTestOrchestrator(repo, &MockCartProvider{}, &MockCouponValidator{}, &MockOrderWriter{}, testRazorpayFlow())

	svc.ExpirePending(context.Background(), 30*time.Minute)

	assert.Equal(t, IntentStatusFailed, repo.UpdatedStatus)
	assert.Equal(t, "authorization window expired", repo.UpdatedReason)
}

func TestExpirePending_SkipsVerifiedIntent(t *testing.T) {
	verified := &PaymentIntent{
		ID:     uuid.New(),
		UserID: "user-1",
		Status: IntentStatusVerified,
	}
	repo := &MockRepository{ExpiredIntents: []*PaymentIntent{verified}}
	svc := newTestOrchestrator(repo, &MockCartProvider{}, &MockCouponValidator{}, &MockOrderWriter{}, testRazorpayFlow())

	svc.ExpirePending(context.Background(), 30*time.Minute)

	// Payment already happened; the sweep must never fail a VERIFIED intent.
	assert.Empty(t, repo.UpdatedStatus)
}

func TestRecoverVerified_RetriesPersistence(t *testing.T) {
	verified := &PaymentIntent{
		ID:              uuid.New(),
		UserID:          "user-1",
		Gateway:         gateway.KindRazorpay,
		PaymentID:       "pay_1",
		ExternalOrderID: "order_rzp_1",
		Status:          IntentStatusVerified,
		CartSnapshot:    verifiedSnapshot(t),
	}
	repo := &MockRepository{VerifiedIntents: []*PaymentIntent{verified}}
	orders := &MockOrderWriter{}
	carts := &MockCartProvider{Cart: testCart()}
	svc := newTestOrchestrator(repo, carts, &MockCouponValidator{}, orders, testRazorpayFlow())

	svc.RecoverVerified(context.Background())

	assert.Equal(t, 1, orders.Calls)
	assert.Equal(t, verified.ID, repo.PersistedID)
}
