package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RazorpayFlow drives the domestic gateway. Orders are created server-side
// in paise; the client widget authorizes out-of-band and posts back
// {payment_id, order_id, signature}, which we verify by recomputing the
// HMAC-SHA256 signature with the key secret.
type RazorpayFlow struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *breakerClient
}

func NewRazorpayFlow(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayFlow {
	return &RazorpayFlow{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      newBreakerClient("razorpay", timeout),
	}
}

func (f *RazorpayFlow) Kind() Kind {
	return KindRazorpay
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"` // paise
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (f *RazorpayFlow) CreateOrder(ctx context.Context, amountINR float64) (*OrderHandle, error) {
	payload := razorpayOrderRequest{
		Amount:   int64(math.Round(amountINR * 100)),
		Currency: "INR",
		Receipt:  fmt.Sprintf("rcpt_%s", uuid.New()),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.SetBasicAuth(f.keyID, f.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: order creation returned %d: %s", ErrGateway, resp.StatusCode, raw)
	}

	var order razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decode order response: %v", ErrGateway, err)
	}

	return &OrderHandle{
		ID:       order.ID,
		Amount:   float64(order.Amount),
		Currency: order.Currency,
	}, nil
}

// Verify recomputes the signature over "orderID|paymentID" and compares in
// constant time. No network round trip is needed; authenticity rests on the
// key secret never leaving the server.
func (f *RazorpayFlow) Verify(_ context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.PaymentID == "" || req.Signature == "" {
		return nil, fmt.Errorf("%w: missing payment id or signature", ErrVerificationFailed)
	}

	mac := hmac.New(sha256.New, []byte(f.keySecret))
	mac.Write([]byte(req.OrderID + "|" + req.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrVerificationFailed)
	}

	return &VerifyResult{PaymentID: req.PaymentID}, nil
}
