package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPlaceholder(t *testing.T) {
	assert.True(t, HasPlaceholder(""))
	assert.True(t, HasPlaceholder("rzp_test_abc", ""))
	assert.True(t, HasPlaceholder("REPLACE_WITH_KEY"))
	assert.True(t, HasPlaceholder("your_key_here"))
	assert.True(t, HasPlaceholder("xxxxxx"))
	assert.True(t, HasPlaceholder("dummy-secret"))
	assert.False(t, HasPlaceholder("rzp_test_abc123", "s3cr3t"))
}

func TestCheckoutSignatureRoundTrip(t *testing.T) {
	sig := SignCheckout("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, VerifyCheckoutSignature("secret", "order_1", "pay_1", sig))
	assert.False(t, VerifyCheckoutSignature("secret", "order_1", "pay_2", sig))
	assert.False(t, VerifyCheckoutSignature("other", "order_1", "pay_1", sig))
	assert.False(t, VerifyCheckoutSignature("secret", "order_1", "pay_1", "tampered"))
}

func TestWebhookSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := SignWebhook("whsec", body)
	assert.True(t, VerifyWebhookSignature("whsec", body, sig))
	assert.False(t, VerifyWebhookSignature("whsec", []byte(`{"event":"payment.failed"}`), sig))
	assert.False(t, VerifyWebhookSignature("wrong", body, sig))
}

func TestNewRazorpayGatewayRejectsPlaceholders(t *testing.T) {
	_, err := NewRazorpayGateway("your_key_id", "secret")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewRazorpayGateway("rzp_test_abc", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_abc", user)
		assert.Equal(t, "s3cr3t", pass)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 49900, req["amount"])
		assert.Equal(t, "INR", req["currency"])

		json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_live_1",
			"amount":   49900,
			"currency": "INR",
		})
	}))
	defer srv.Close()

	gw, err := NewRazorpayGatewayWithBaseURL("rzp_test_abc", "s3cr3t", srv.URL)
	require.NoError(t, err)

	order, err := gw.CreateOrder(context.Background(), 49900, "INR", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "order_live_1", order.ID)
	assert.EqualValues(t, 49900, order.Amount)
}

func TestRazorpayCreateOrderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	gw, err := NewRazorpayGatewayWithBaseURL("rzp_test_abc", "s3cr3t", srv.URL)
	require.NoError(t, err)

	_, err = gw.CreateOrder(context.Background(), 49900, "INR", "user-1")
	assert.Error(t, err)
}

func TestMockGateway(t *testing.T) {
	gw := NewMockGateway()
	gw.now = func() time.Time { return time.UnixMilli(1700000000000) }

	order, err := gw.CreateOrder(context.Background(), 49900, "INR", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "mock_order_1700000000000", order.ID)
	assert.Equal(t, "mock_pay_1700000000000", gw.MockPaymentID())

	assert.True(t, gw.VerifyCheckout(order.ID, "mock_pay_1", MockSignature))
	assert.False(t, gw.VerifyCheckout(order.ID, "mock_pay_1", "forged"))
}

func TestMockGatewayRejectsForeignOrderIDs(t *testing.T) {
	gw := NewMockGateway()

	// The fixed signature only vouches for orders the mock issued.
	assert.False(t, gw.VerifyCheckout("order_live_arbitrary", "pay_x", MockSignature))
	assert.False(t, gw.VerifyCheckout("", "pay_x", MockSignature))
}
