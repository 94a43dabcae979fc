package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// placeholderMarkers flag credentials that were never replaced with real
// keys. Orders must hard-fail on these rather than silently degrade.
var placeholderMarkers = []string{"replace_with", "your_", "xxx", "dummy"}

// HasPlaceholder reports whether any credential is empty or still carries a
// template marker.
func HasPlaceholder(creds ...string) bool {
	for _, cred := range creds {
		if cred == "" {
			return true
		}
		lower := strings.ToLower(cred)
		for _, marker := range placeholderMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// SignCheckout computes the checkout signature the gateway sends back after
// a successful payment: hex HMAC-SHA256 of "orderID|paymentID".
func SignCheckout(keySecret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCheckoutSignature checks a checkout signature in constant time.
func VerifyCheckoutSignature(keySecret, orderID, paymentID, signature string) bool {
	expected := SignCheckout(keySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignWebhook computes the webhook signature over the raw request body.
func SignWebhook(webhookSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the webhook signature against the raw body
// in constant time.
func VerifyWebhookSignature(webhookSecret string, body []byte, signature string) bool {
	expected := SignWebhook(webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
