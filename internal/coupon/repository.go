package coupon

import (
	"context"
	"errors"
)

var ErrCouponNotFound = errors.New("coupon not found")

// CouponRepository defines the read side of the coupon store.
// Consumers define this interface, not the MongoDB implementation.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
