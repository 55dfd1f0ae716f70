package checkout

import (
	"context"
	"fmt"

	"github.com/yogesh832/dumpsexpert-checkout/internal/cart"
	"github.com/yogesh832/dumpsexpert-checkout/internal/coupon"
	"github.com/yogesh832/dumpsexpert-checkout/internal/gateway"
	"github.com/yogesh832/dumpsexpert-checkout/internal/order"
)

// CartProvider, CouponValidator and OrderWriter are consumer-defined views of
// the collaborating services; tests swap in struct mocks.
type CartProvider interface {
	GetCart(ctx context.Context, userID string) (*cart.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CouponValidator interface {
	Validate(ctx context.Context, code string) (*coupon.Coupon, error)
}

type OrderWriter interface {
	CreateOrder(ctx context.Context, order *order.Order) error
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*order.Order, error)
}

// Orchestrator owns the payment intent lifecycle. UI layers read the intent
// state through its responses; nothing outside this package moves an intent
// between statuses.
type Orchestrator struct {
	repo    RepoInterface
	carts   CartProvider
	coupons CouponValidator
	orders  OrderWriter
	flows   map[gateway.Kind]gateway.Flow
}

func NewOrchestrator(
	repo RepoInterface,
	carts CartProvider,
	coupons CouponValidator,
	orders OrderWriter,
	flows ...gateway.Flow,
) *Orchestrator {
	flowMap := make(map[gateway.Kind]gateway.Flow, len(flows))
	for _, f := range flows {
		flowMap[f.Kind()] = f
	}
	return &Orchestrator{
		repo:    repo,
		carts:   carts,
		coupons: coupons,
		orders:  orders,
		flows:   flowMap,
	}
}

func (o *Orchestrator) flow(kind gateway.Kind) (gateway.Flow, error) {
	f, ok := o.flows[kind]
	if !ok {
		return nil, fmt.Errorf("unknown payment gateway %q", kind)
	}
	return f, nil
}
