package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogesh832/dumpsexpert-checkout/internal/coupon"
)

type validatorMock struct {
	coupon *coupon.Coupon
	err    error
}

func (v validatorMock) Validate(_ context.Context, _ string) (*coupon.Coupon, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.coupon, nil
}

func postCouponValidate(handler *CouponHandler, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/coupons/validate", bytes.NewBufferString(body))
	handler.Validate(recorder, request)
	return recorder
}

func TestValidateCoupon_Success(t *testing.T) {
	mock := validatorMock{
		coupon: &coupon.Coupon{
			ID:       "c1",
			Code:     "SAVE150",
			Name:     "Festive",
			Discount: 150,
		},
	}
	handler := NewCouponHandler(mock, 5*time.Second)

	recorder := postCouponValidate(handler, `{"code":"SAVE150"}`)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response ValidateCouponResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "Coupon is valid", response.Message)
	assert.Equal(t, "SAVE150", response.Coupon.Code)
	assert.Equal(t, 150.0, response.Coupon.Discount)
	assert.Equal(t, "Festive", response.Coupon.Name)
}

func TestValidateCoupon_MissingCode(t *testing.T) {
	handler := NewCouponHandler(validatorMock{err: coupon.ErrMissingCode}, 5*time.Second)

	recorder := postCouponValidate(handler, `{"code":""}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var response MessageResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "Coupon code is required", response.Message)
}

func TestValidateCoupon_NotFound(t *testing.T) {
	handler := NewCouponHandler(validatorMock{err: coupon.ErrCouponNotFound}, 5*time.Second)

	recorder := postCouponValidate(handler, `{"code":"NOPE"}`)

	assert.Equal(t, http.StatusNotFound, recorder.Code)

	var response MessageResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "Coupon not found", response.Message)
}

func TestValidateCoupon_Expired(t *testing.T) {
	handler := NewCouponHandler(validatorMock{err: coupon.ErrNotActive}, 5*time.Second)

	recorder := postCouponValidate(handler, `{"code":"OLD"}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var response MessageResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "Coupon is expired or not yet active", response.Message)
}

func TestValidateCoupon_InvalidBody(t *testing.T) {
	handler := NewCouponHandler(validatorMock{}, 5*time.Second)

	recorder := postCouponValidate(handler, `not json`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
