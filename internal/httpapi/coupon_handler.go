package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/yogesh832/dumpsexpert-checkout/internal/coupon"
)

type CouponValidator interface {
	Validate(ctx context.Context, code string) (*coupon.Coupon, error)
}

type CouponHandler struct {
	validator CouponValidator
	timeout   time.Duration
}

func NewCouponHandler(validator CouponValidator, timeout time.Duration) *CouponHandler {
	return &CouponHandler{
		validator: validator,
		timeout:   timeout,
	}
}

type ValidateCouponRequestDTO struct {
	Code string `json:"code"`
}

type CouponDTO struct {
	ID       string  `json:"id"`
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
	Name     string  `json:"name"`
}

type ValidateCouponResponseDTO struct {
	Message string    `json:"message"`
	Coupon  CouponDTO `json:"coupon"`
}

// POST /api/coupons/validate
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ValidateCouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Coupon code is required")
		return
	}

	c, err := h.validator.Validate(ctx, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, coupon.ErrMissingCode):
			respondMessage(w, http.StatusBadRequest, "Coupon code is required")
		case errors.Is(err, coupon.ErrCouponNotFound):
			respondMessage(w, http.StatusNotFound, "Coupon not found")
		case errors.Is(err, coupon.ErrNotActive):
			respondMessage(w, http.StatusBadRequest, "Coupon is expired or not yet active")
		default:
			log.Printf("coupon validation error: %v", err)
			respondMessage(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, ValidateCouponResponseDTO{
		Message: "Coupon is valid",
		Coupon: CouponDTO{
			ID:       c.ID,
			Code:     c.Code,
			Discount: c.Discount,
			Name:     c.Name,
		},
	})
}
