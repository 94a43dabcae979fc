package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/internal/services/payment"
	"helpdesk_backend/pkg/apperrors"
)

const testWebhookSecret = "whsec_test"

type paymentFixture struct {
	svc         PaymentService
	userRepo    *fakeUserRepo
	paymentRepo *fakePaymentRepo
	gateway     *fakeGateway
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		userRepo:    newFakeUserRepo(),
		paymentRepo: newFakePaymentRepo(),
		gateway:     &fakeGateway{secret: "checkout_secret"},
	}
	f.svc = NewPaymentService(f.paymentRepo, f.userRepo, f.gateway, PaymentSettings{
		AmountINR:     499,
		Credits:       25,
		PlanID:        "starter-monthly",
		WebhookSecret: testWebhookSecret,
	})
	return f
}

func (f *paymentFixture) createOrder(t *testing.T, user *models.User) *dto.CreateOrderResponse {
	t.Helper()
	resp, err := f.svc.CreateOrder(context.Background(), principalOf(user))
	require.NoError(t, err)
	return resp
}

func capturedWebhook(t *testing.T, orderID, paymentID string) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{"id": paymentID, "order_id": orderID},
			},
		},
	})
	require.NoError(t, err)
	return body, payment.SignWebhook(testWebhookSecret, body)
}

func TestCreateOrderPersistsPendingPayment(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser})

	resp := f.createOrder(t, user)
	assert.Equal(t, "order_1", resp.OrderID)
	assert.EqualValues(t, 49900, resp.Amount)
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, 25, resp.Credits)
	assert.Equal(t, "rzp_test_fake", resp.KeyID)
	assert.Equal(t, "u", resp.DisplayName)

	stored, err := f.paymentRepo.FindByOrderID("order_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCreated, stored.Status)
	assert.Equal(t, user.ID, stored.UserID)
	assert.Equal(t, 25, stored.CreditsAdded)
}

func TestCreateOrderWithoutGateway(t *testing.T) {
	f := newPaymentFixture()
	f.svc = NewPaymentService(f.paymentRepo, f.userRepo, nil, PaymentSettings{AmountINR: 499, Credits: 25})
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser})

	_, err := f.svc.CreateOrder(context.Background(), principalOf(user))
	assert.ErrorIs(t, err, apperrors.ErrGatewayNotConfigured)
}

func TestVerifyCreditsOnce(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser, CreditsRemaining: 0})
	order := f.createOrder(t, user)

	sig := payment.SignCheckout("checkout_secret", order.OrderID, "pay_1")
	resp, err := f.svc.Verify(context.Background(), principalOf(user), &dto.VerifyPaymentRequest{
		OrderID:   order.OrderID,
		PaymentID: "pay_1",
		Signature: sig,
	})
	require.NoError(t, err)
	assert.False(t, resp.Duplicate)
	assert.Equal(t, 25, resp.User.CreditsRemaining)
	assert.Equal(t, models.SubscriptionStatusActive, resp.User.SubscriptionStatus)
	require.Len(t, resp.User.PaymentHistory, 1)
	assert.Equal(t, order.OrderID, resp.User.PaymentHistory[0].GatewayOrderID)

	// Second verification reports duplicate without re-crediting.
	again, err := f.svc.Verify(context.Background(), principalOf(user), &dto.VerifyPaymentRequest{
		OrderID:   order.OrderID,
		PaymentID: "pay_1",
		Signature: sig,
	})
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, 25, again.User.CreditsRemaining)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser})
	order := f.createOrder(t, user)

	_, err := f.svc.Verify(context.Background(), principalOf(user), &dto.VerifyPaymentRequest{
		OrderID:   order.OrderID,
		PaymentID: "pay_1",
		Signature: "forged",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)

	stored, _ := f.paymentRepo.FindByOrderID(order.OrderID)
	assert.Equal(t, models.PaymentStatusCreated, stored.Status)
}

func TestVerifyRejectsForeignPayment(t *testing.T) {
	f := newPaymentFixture()
	owner := f.userRepo.addUser(models.User{Email: "owner@example.com", Role: models.UserRoleUser})
	thief := f.userRepo.addUser(models.User{Email: "thief@example.com", Role: models.UserRoleUser})
	order := f.createOrder(t, owner)

	sig := payment.SignCheckout("checkout_secret", order.OrderID, "pay_1")
	_, err := f.svc.Verify(context.Background(), principalOf(thief), &dto.VerifyPaymentRequest{
		OrderID:   order.OrderID,
		PaymentID: "pay_1",
		Signature: sig,
	})
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotOwned)
}

func TestVerifyUnknownOrder(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser})

	sig := payment.SignCheckout("checkout_secret", "order_missing", "pay_1")
	_, err := f.svc.Verify(context.Background(), principalOf(user), &dto.VerifyPaymentRequest{
		OrderID:   "order_missing",
		PaymentID: "pay_1",
		Signature: sig,
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.HTTPCode)
}

func TestConcurrentVerifyCreditsOnce(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser, CreditsRemaining: 0})
	order := f.createOrder(t, user)
	sig := payment.SignCheckout("checkout_secret", order.OrderID, "pay_1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.Verify(context.Background(), principalOf(user), &dto.VerifyPaymentRequest{
				OrderID:   order.OrderID,
				PaymentID: "pay_1",
				Signature: sig,
			})
		}()
	}
	wg.Wait()

	stored, _ := f.userRepo.FindByID(user.ID)
	assert.Equal(t, 25, stored.CreditsRemaining)
	require.Len(t, stored.PaymentHistory, 1)
}

func TestWebhookCapturedCreditsLedger(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser, CreditsRemaining: 0})
	order := f.createOrder(t, user)

	body, sig := capturedWebhook(t, order.OrderID, "pay_wh_1")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))

	stored, _ := f.userRepo.FindByID(user.ID)
	assert.Equal(t, 25, stored.CreditsRemaining)
	assert.Equal(t, models.SubscriptionStatusActive, stored.SubscriptionStatus)

	// Replay is a no-op.
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))
	stored, _ = f.userRepo.FindByID(user.ID)
	assert.Equal(t, 25, stored.CreditsRemaining)
}

func TestWebhookTamperedSignatureRejected(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser})
	order := f.createOrder(t, user)

	body, sig := capturedWebhook(t, order.OrderID, "pay_wh_1")
	tampered := sig[:len(sig)-1] + "0"
	if tampered == sig {
		tampered = sig[:len(sig)-1] + "1"
	}

	err := f.svc.HandleWebhook(context.Background(), body, tampered)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestWebhookFailedNeverDemotesVerified(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser})
	order := f.createOrder(t, user)

	body, sig := capturedWebhook(t, order.OrderID, "pay_wh_1")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))

	failedBody, err := json.Marshal(map[string]any{
		"event": "payment.failed",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":                "pay_wh_1",
					"order_id":          order.OrderID,
					"error_description": "card declined",
				},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), failedBody, payment.SignWebhook(testWebhookSecret, failedBody)))

	stored, _ := f.paymentRepo.FindByOrderID(order.OrderID)
	assert.Equal(t, models.PaymentStatusVerified, stored.Status)
}

func TestWebhookFailedMarksCreatedPayment(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser})
	order := f.createOrder(t, user)

	body, err := json.Marshal(map[string]any{
		"event": "payment.failed",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":                "pay_wh_1",
					"order_id":          order.OrderID,
					"error_description": "card declined",
				},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, payment.SignWebhook(testWebhookSecret, body)))

	stored, _ := f.paymentRepo.FindByOrderID(order.OrderID)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
	assert.Equal(t, "card declined", stored.FailureReason)
}

func TestWebhookIgnoresIrrelevantEvents(t *testing.T) {
	f := newPaymentFixture()

	body, err := json.Marshal(map[string]any{"event": "order.paid"})
	require.NoError(t, err)
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, payment.SignWebhook(testWebhookSecret, body)))

	// Unknown order ids are acknowledged, never errored, so the sender
	// does not retry forever.
	body, sig := capturedWebhook(t, "order_unknown", "pay_x")
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), body, sig))
}

func TestWebhookWithoutSecretRejected(t *testing.T) {
	f := newPaymentFixture()
	f.svc = NewPaymentService(f.paymentRepo, f.userRepo, f.gateway, PaymentSettings{
		AmountINR: 499, Credits: 25, WebhookSecret: "your_webhook_secret",
	})

	body, _ := capturedWebhook(t, "order_1", "pay_1")
	err := f.svc.HandleWebhook(context.Background(), body, payment.SignWebhook("your_webhook_secret", body))
	assert.ErrorIs(t, err, apperrors.ErrGatewayNotConfigured)
}

func TestCreditsSnapshot(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{
		Email: "u@example.com", Role: models.UserRoleUser,
		CreditsRemaining: 3, CreditsUsed: 2,
		SubscriptionStatus: models.SubscriptionStatusActive,
	})

	info, err := f.svc.Credits(context.Background(), principalOf(user))
	require.NoError(t, err)
	assert.Equal(t, 3, info.CreditsRemaining)
	assert.Equal(t, 2, info.CreditsUsed)
	assert.Equal(t, models.SubscriptionStatusActive, info.SubscriptionStatus)
}

func TestHistoryScopedToUser(t *testing.T) {
	f := newPaymentFixture()
	user := f.userRepo.addUser(models.User{Email: "u@example.com", Role: models.UserRoleUser})
	other := f.userRepo.addUser(models.User{Email: "o@example.com", Role: models.UserRoleUser})
	f.createOrder(t, user)
	f.createOrder(t, other)

	payments, err := f.svc.History(context.Background(), principalOf(user))
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, user.ID, payments[0].UserID)
}

func TestConfigExposesOffer(t *testing.T) {
	f := newPaymentFixture()
	cfg := f.svc.Config(context.Background())
	assert.Equal(t, "rzp_test_fake", cfg.KeyID)
	assert.EqualValues(t, 49900, cfg.Amount)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 25, cfg.Credits)
	assert.Equal(t, "starter-monthly", cfg.PlanID)
	assert.True(t, cfg.Configured)

	unconfigured := NewPaymentService(f.paymentRepo, f.userRepo, nil, PaymentSettings{AmountINR: 499, Credits: 25})
	assert.False(t, unconfigured.Config(context.Background()).Configured)
}
