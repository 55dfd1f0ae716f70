package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingCode = errors.New("coupon code is required")
	ErrNotActive   = errors.New("coupon is expired or not yet active")
)

type Validator struct {
	repo CouponRepository
	now  func() time.Time
}

func NewValidator(repo CouponRepository) *Validator {
	return &Validator{
		repo: repo,
		now:  time.Now,
	}
}

// NewValidatorWithClock injects the time source, used by tests to pin "now"
// around coupon windows.
func NewValidatorWithClock(repo CouponRepository, now func() time.Time) *Validator {
	return &Validator{repo: repo, now: now}
}

// Validate normalizes the code (trim + uppercase), looks it up and checks the
// active window. A coupon is valid iff startDate <= now <= endDate.
func (v *Validator) Validate(ctx context.Context, code string) (*Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, ErrMissingCode
	}

	c, err := v.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to validate coupon: %w", err)
	}

	now := v.now()
	if now.Before(c.StartDate) || now.After(c.EndDate) {
		return nil, ErrNotActive
	}

	return c, nil
}
