package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yogesh832/dumpsexpert-checkout/internal/cart"
	"github.com/yogesh832/dumpsexpert-checkout/internal/coupon"
	"github.com/yogesh832/dumpsexpert-checkout/internal/gateway"
	"github.com/yogesh832/dumpsexpert-checkout/internal/order"
)

// MockRepository implements RepoInterface for testing
type MockRepository struct {
	Intent        *PaymentIntent
	PendingIntent *PaymentIntent
	GetErr        error
	CreateErr     error
	UpdateErr     error
	PersistErr    error

	CreatedIntent   *PaymentIntent // Captures the intent passed to CreateIntent
	UpdatedStatus   IntentStatus
	UpdatedReason   string
	SetPaymentID    string
	PersistedID     uuid.UUID
	PersistedEvent  []byte
	ExpiredIntents  []*PaymentIntent
	VerifiedIntents []*PaymentIntent
}

func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) RunMigrations(*Credentials) error {
	return nil
}

func (m *MockRepository) CreateIntent(_ context.Context, intent *PaymentIntent) error {
	m.CreatedIntent = intent
	return m.CreateErr
}

func (m *MockRepository) GetIntentByExternalOrderID(_ context.Context, _ string) (*PaymentIntent, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Intent == nil {
		return nil, ErrIntentNotFound
	}
	return m.Intent, nil
}

func (m *MockRepository) GetPendingIntentByUser(_ context.Context, _ string) (*PaymentIntent, error) {
	if m.PendingIntent == nil {
		return nil, ErrIntentNotFound
	}
	return m.PendingIntent, nil
}

func (m *MockRepository) UpdateIntentStatus(_ context.Context, _ uuid.UUID, status IntentStatus, reason string) error {
	m.UpdatedStatus = status
	m.UpdatedReason = reason
	return m.UpdateErr
}

func (m *MockRepository) SetPayment(_ context.Context, _ uuid.UUID, status IntentStatus, paymentID string) error {
	m.UpdatedStatus = status
	m.SetPaymentID = paymentID
	return nil
}

func (m *MockRepository) MarkPersisted(_ context.Context, id uuid.UUID, eventPayload []byte) error {
	if m.PersistErr != nil {
		return m.PersistErr
	}
	m.PersistedID = id
	m.PersistedEvent = eventPayload
	return nil
}

func (m *MockRepository) GetExpiredPendingIntents(_ context.Context, _ time.Duration) ([]*PaymentIntent, error) {
	return m.ExpiredIntents, nil
}

func (m *MockRepository) GetVerifiedUnpersisted(_ context.Context) ([]*PaymentIntent, error) {
	return m.VerifiedIntents, nil
}

func (m *MockRepository) GetUnprocessedEvents(_ context.Context, _ int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, _ int64) error {
	return nil
}

// MockCartProvider implements CartProvider for testing
type MockCartProvider struct {
	Cart     *cart.Cart
	GetErr   error
	ClearErr error
	Cleared  bool
}

func (m *MockCartProvider) GetCart(_ context.Context, _ string) (*cart.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Cart, nil
}

func (m *MockCartProvider) ClearCart(_ context.Context, _ string) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cleared = true
	return nil
}

// MockCouponValidator implements CouponValidator for testing
type MockCouponValidator struct {
	Coupon *coupon.Coupon
	Err    error
}

func (m *MockCouponValidator) Validate(_ context.Context, _ string) (*coupon.Coupon, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Coupon, nil
}

// MockOrderWriter implements OrderWriter for testing
type MockOrderWriter struct {
	Err      error
	Existing *order.Order // Returned by GetOrderByPaymentID when set
	Created  *order.Order // Captures the order passed to CreateOrder
	Calls    int
	LookedUp string // Captures the payment id passed to GetOrderByPaymentID
}

func (m *MockOrderWriter) CreateOrder(_ context.Context, o *order.Order) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	m.Created = o
	return nil
}

func (m *MockOrderWriter) GetOrderByPaymentID(_ context.Context, paymentID string) (*order.Order, error) {
	m.LookedUp = paymentID
	if m.Existing == nil {
		return nil, order.ErrOrderNotFound
	}
	return m.Existing, nil
}

// MockFlow implements gateway.Flow for testing
type MockFlow struct {
	FlowKind     gateway.Kind
	Handle       *gateway.OrderHandle
	CreateErr    error
	Result       *gateway.VerifyResult
	VerifyErr    error
	CreateAmount float64 // Captures the amount passed to CreateOrder
}

func (m *MockFlow) Kind() gateway.Kind {
	return m.FlowKind
}

func (m *MockFlow) CreateOrder(_ context.Context, amountINR float64) (*gateway.OrderHandle, error) {
	m.CreateAmount = amountINR
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return m.Handle, nil
}

func (m *MockFlow) Verify(_ context.Context, _ gateway.VerifyRequest) (*gateway.VerifyResult, error) {
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	return m.Result, nil
}

// newTestOrchestrator creates a fully wired Orchestrator for testing
func newTestOrchestrator(
	repo *MockRepository,
	carts *MockCartProvider,
	coupons *MockCouponValidator,
	orders *MockOrderWriter,
	flows ...gateway.Flow,
) *Orchestrator {
	return NewOrchestrator(repo, carts, coupons, orders, flows...)
}
