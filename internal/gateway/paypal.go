package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// PayPalFlow drives the international gateway. The cart is priced in INR, so
// amounts convert to USD with the configured rate before they reach PayPal.
// The embedded buttons approve the order client-side; Verify performs the
// server-side capture and checks the captured amount against the intent.
type PayPalFlow struct {
	baseURL      string
	clientID     string
	clientSecret string
	inrPerUSD    float64
	http         *breakerClient
}

func NewPayPalFlow(baseURL, clientID, clientSecret string, inrPerUSD float64, timeout time.Duration) *PayPalFlow {
	return &PayPalFlow{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		inrPerUSD:    inrPerUSD,
		http:         newBreakerClient("paypal", timeout),
	}
}

func (f *PayPalFlow) Kind() Kind {
	return KindPayPal
}

func (f *PayPalFlow) usdValue(amountINR float64) string {
	return strconv.FormatFloat(math.Round(amountINR/f.inrPerUSD*100)/100, 'f', 2, 64)
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (f *PayPalFlow) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.baseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(f.clientID, f.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrGateway, resp.StatusCode)
	}

	var token paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrGateway, err)
	}
	return token.AccessToken, nil
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalOrderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Amount   paypalAmount `json:"amount"`
		Payments struct {
			Captures []struct {
				ID     string       `json:"id"`
				Status string       `json:"status"`
				Amount paypalAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (f *PayPalFlow) CreateOrder(ctx context.Context, amountINR float64) (*OrderHandle, error) {
	token, err := f.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	value := f.usdValue(amountINR)
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{"amount": paypalAmount{CurrencyCode: "USD", Value: value}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: order creation returned %d: %s", ErrGateway, resp.StatusCode, raw)
	}

	var order paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decode order response: %v", ErrGateway, err)
	}

	usd, _ := strconv.ParseFloat(value, 64)
	return &OrderHandle{
		ID:       order.ID,
		Amount:   usd,
		Currency: "USD",
	}, nil
}

// Verify captures the approved order and confirms the captured amount matches
// what the intent was priced at. A capture that comes back anything other
// than COMPLETED, or for a different amount, fails verification.
func (f *PayPalFlow) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	token, err := f.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	captureReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.baseURL+"/v2/checkout/orders/"+req.OrderID+"/capture", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("failed to build capture request: %w", err)
	}
	captureReq.Header.Set("Authorization", "Bearer "+token)
	captureReq.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(captureReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: capture returned %d: %s", ErrVerificationFailed, resp.StatusCode, raw)
	}

	var order paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decode capture response: %v", ErrGateway, err)
	}

	if order.Status != "COMPLETED" {
		return nil, fmt.Errorf("%w: capture status %s", ErrVerificationFailed, order.Status)
	}
	if len(order.PurchaseUnits) == 0 || len(order.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, fmt.Errorf("%w: no capture in response", ErrVerificationFailed)
	}

	capture := order.PurchaseUnits[0].Payments.Captures[0]
	if capture.Status != "COMPLETED" {
		return nil, fmt.Errorf("%w: capture status %s", ErrVerificationFailed, capture.Status)
	}

	expected := f.usdValue(req.AmountINR)
	if capture.Amount.Value != expected || capture.Amount.CurrencyCode != "USD" {
		return nil, fmt.Errorf("%w: captured %s %s, expected %s USD",
			ErrVerificationFailed, capture.Amount.Value, capture.Amount.CurrencyCode, expected)
	}

	return &VerifyResult{PaymentID: capture.ID}, nil
}
