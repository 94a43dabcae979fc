package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured means the gateway credentials are missing or still hold
// template placeholders. Callers surface this instead of falling back to
// mock behavior.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// Order is a gateway-side order created ahead of checkout.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Gateway creates orders and verifies checkout signatures.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
	VerifyCheckout(orderID, paymentID, signature string) bool
	KeyID() string
}

const defaultRazorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayGateway talks to the Razorpay orders API with basic auth.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func NewRazorpayGateway(keyID, keySecret string) (*RazorpayGateway, error) {
	if HasPlaceholder(keyID, keySecret) {
		return nil, ErrNotConfigured
	}
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   defaultRazorpayBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// NewRazorpayGatewayWithBaseURL is used by tests to point the client at a
// stub server.
func NewRazorpayGatewayWithBaseURL(keyID, keySecret, baseURL string) (*RazorpayGateway, error) {
	gw, err := NewRazorpayGateway(keyID, keySecret)
	if err != nil {
		return nil, err
	}
	gw.baseURL = strings.TrimRight(baseURL, "/")
	return gw, nil
}

func (g *RazorpayGateway) KeyID() string { return g.keyID }

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call orders API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read orders response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("orders API returned status %d", resp.StatusCode)
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode orders response: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("orders API returned no order id")
	}
	return &order, nil
}

func (g *RazorpayGateway) VerifyCheckout(orderID, paymentID, signature string) bool {
	return VerifyCheckoutSignature(g.keySecret, orderID, paymentID, signature)
}

// MockGateway issues synthetic orders for local development. It is only
// selected when the mode is explicitly "mock"; placeholder credentials
// never fall back to it.
type MockGateway struct {
	now func() time.Time
}

func NewMockGateway() *MockGateway {
	return &MockGateway{now: time.Now}
}

func (g *MockGateway) KeyID() string { return "mock" }

func (g *MockGateway) CreateOrder(_ context.Context, amount int64, currency, _ string) (*Order, error) {
	return &Order{
		ID:       fmt.Sprintf("%s%d", mockOrderPrefix, g.now().UnixMilli()),
		Amount:   amount,
		Currency: currency,
	}, nil
}

// MockPaymentID generates the payment id the mock checkout would produce.
func (g *MockGateway) MockPaymentID() string {
	return fmt.Sprintf("mock_pay_%d", g.now().UnixMilli())
}

// MockSignature is the fixed signature accepted by the mock gateway.
const MockSignature = "mock_signature"

// mockOrderPrefix marks orders issued by the mock gateway; verification
// refuses anything else so live order ids cannot pass through mock checks.
const mockOrderPrefix = "mock_order_"

func (g *MockGateway) VerifyCheckout(orderID, _, signature string) bool {
	return strings.HasPrefix(orderID, mockOrderPrefix) && signature == MockSignature
}
