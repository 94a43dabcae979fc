package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"helpdesk_backend/internal/auth"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/internal/services/payment"
	"helpdesk_backend/pkg/apperrors"
)

const paymentHistoryLimit = 20

// PaymentSettings is the subscription offer the service sells.
type PaymentSettings struct {
	AmountINR     int64
	Credits       int
	PlanID        string
	WebhookSecret string
	Mock          bool
}

type PaymentService interface {
	Config(ctx context.Context) *dto.PaymentConfigResponse
	Credits(ctx context.Context, p auth.Principal) (*dto.CreditInfo, error)
	History(ctx context.Context, p auth.Principal) ([]models.Payment, error)
	CreateOrder(ctx context.Context, p auth.Principal) (*dto.CreateOrderResponse, error)
	Verify(ctx context.Context, p auth.Principal, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type PaymentServiceImpl struct {
	paymentRepo repositories.PaymentRepository
	userRepo    repositories.UserRepository
	gateway     payment.Gateway
	settings    PaymentSettings
}

func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	userRepo repositories.UserRepository,
	gateway payment.Gateway,
	settings PaymentSettings,
) PaymentService {
	return &PaymentServiceImpl{
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		settings:    settings,
	}
}

func (s *PaymentServiceImpl) Config(ctx context.Context) *dto.PaymentConfigResponse {
	resp := &dto.PaymentConfigResponse{
		Amount:   s.settings.AmountINR * 100,
		Currency: "INR",
		Credits:  s.settings.Credits,
		PlanID:   s.settings.PlanID,
		Mock:     s.settings.Mock,
	}
	if s.gateway != nil {
		resp.KeyID = s.gateway.KeyID()
		resp.Configured = true
	}
	return resp
}

func (s *PaymentServiceImpl) Credits(ctx context.Context, p auth.Principal) (*dto.CreditInfo, error) {
	user, err := s.userRepo.FindByID(p.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return &dto.CreditInfo{
		CreditsRemaining:   user.CreditsRemaining,
		CreditsUsed:        user.CreditsUsed,
		SubscriptionStatus: user.SubscriptionStatus,
	}, nil
}

func (s *PaymentServiceImpl) History(ctx context.Context, p auth.Principal) ([]models.Payment, error) {
	payments, err := s.paymentRepo.ListByUser(p.UserID, paymentHistoryLimit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return payments, nil
}

func (s *PaymentServiceImpl) CreateOrder(ctx context.Context, p auth.Principal) (*dto.CreateOrderResponse, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrGatewayNotConfigured
	}

	amount := s.settings.AmountINR * 100 // smallest currency unit
	receipt := fmt.Sprintf("sub-%s-%d", p.UserID, time.Now().UnixMilli())
	order, err := s.gateway.CreateOrder(ctx, amount, "INR", receipt)
	if err != nil {
		logger.CtxWithError(ctx, "order creation failed", err, "userId", p.UserID)
		return nil, apperrors.Wrap(err, apperrors.CodeOrderCreateFailed, "payment", "Failed to create payment order", 502)
	}

	record := &models.Payment{
		UserID:       p.UserID,
		OrderID:      order.ID,
		Amount:       amount,
		Currency:     "INR",
		Status:       models.PaymentStatusCreated,
		CreditsAdded: s.settings.Credits,
		PlanID:       s.settings.PlanID,
	}
	if err := s.paymentRepo.Create(record); err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.CreateOrderResponse{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: "INR",
		KeyID:    s.gateway.KeyID(),
		Credits:  s.settings.Credits,
		PlanID:   s.settings.PlanID,
		Mock:     s.settings.Mock,
	}
	if user, err := s.userRepo.FindByID(p.UserID); err == nil {
		resp.DisplayName = displayNameOf(user.Email)
	}
	return resp, nil
}

// displayNameOf is the checkout prefill name, the local part of the email.
func displayNameOf(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// Verify handles the client-submitted payment proof. It is idempotent: a
// payment already verified (by a previous call or the webhook) reports
// duplicate success without re-crediting.
func (s *PaymentServiceImpl) Verify(ctx context.Context, p auth.Principal, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrGatewayNotConfigured
	}
	if !s.gateway.VerifyCheckout(req.OrderID, req.PaymentID, req.Signature) {
		return nil, apperrors.ErrInvalidSignature
	}

	record, err := s.paymentRepo.FindByOrderID(req.OrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if record.UserID != p.UserID {
		return nil, apperrors.ErrPaymentNotOwned
	}

	return s.applyVerified(ctx, record, req.PaymentID, req.Signature)
}

// applyVerified runs the guarded verified-transition and credits the ledger
// only when this call actually won the transition.
func (s *PaymentServiceImpl) applyVerified(ctx context.Context, record *models.Payment, paymentID, signature string) (*dto.VerifyPaymentResponse, error) {
	now := time.Now()
	won, err := s.paymentRepo.MarkVerified(record.ID, paymentID, signature, record.CreditsAdded, now)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if !won {
		user, err := s.userRepo.FindByID(record.UserID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		return &dto.VerifyPaymentResponse{
			Message:   "Payment already verified",
			Duplicate: true,
			User:      user,
			Credits:   creditInfoOf(user),
		}, nil
	}

	user, err := s.userRepo.CreditOnVerifiedPayment(record.UserID, models.PaymentRecord{
		UserID:           record.UserID,
		GatewayOrderID:   record.OrderID,
		GatewayPaymentID: paymentID,
		Amount:           record.Amount,
		Currency:         record.Currency,
		CreditsAdded:     record.CreditsAdded,
		Status:           models.PaymentStatusVerified,
		VerifiedAt:       &now,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "payment verified", "orderId", record.OrderID, "credits", record.CreditsAdded)
	return &dto.VerifyPaymentResponse{
		Message: "Payment verified",
		User:    user,
		Credits: creditInfoOf(user),
	}, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes gateway webhook deliveries. Delivery is
// at-least-once, so every effect in here must tolerate replay. Unknown
// events and unmatched order ids are acknowledged without effect; only an
// unauthenticated body is rejected.
func (s *PaymentServiceImpl) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.settings.WebhookSecret == "" || payment.HasPlaceholder(s.settings.WebhookSecret) {
		return apperrors.ErrGatewayNotConfigured
	}
	if !payment.VerifyWebhookSignature(s.settings.WebhookSecret, body, signature) {
		return apperrors.ErrInvalidSignature
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return apperrors.NewBadRequestError("Malformed webhook body")
	}

	entity := ev.Payload.Payment.Entity
	if entity.OrderID == "" {
		logger.CtxWarn(ctx, "webhook without order id ignored", "event", ev.Event)
		return nil
	}

	switch ev.Event {
	case "payment.captured":
		return s.webhookCaptured(ctx, entity.OrderID, entity.ID)
	case "payment.failed":
		return s.webhookFailed(ctx, entity.OrderID, entity.ID, entity.ErrorDescription)
	default:
		return nil
	}
}

func (s *PaymentServiceImpl) webhookCaptured(ctx context.Context, orderID, paymentID string) error {
	record, err := s.paymentRepo.FindByOrderID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			logger.CtxWarn(ctx, "webhook for unknown order ignored", "orderId", orderID)
			return nil
		}
		return apperrors.InternalError(err)
	}

	if _, err := s.applyVerified(ctx, record, paymentID, ""); err != nil {
		return err
	}
	return nil
}

func (s *PaymentServiceImpl) webhookFailed(ctx context.Context, orderID, paymentID, reason string) error {
	record, err := s.paymentRepo.FindByOrderID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			logger.CtxWarn(ctx, "webhook for unknown order ignored", "orderId", orderID)
			return nil
		}
		return apperrors.InternalError(err)
	}

	if reason == "" {
		reason = "payment_failed"
	}
	// Guarded write: never demotes a verified payment.
	if err := s.paymentRepo.MarkFailed(record.ID, paymentID, reason); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func creditInfoOf(user *models.User) *dto.CreditInfo {
	return &dto.CreditInfo{
		CreditsRemaining:   user.CreditsRemaining,
		CreditsUsed:        user.CreditsUsed,
		SubscriptionStatus: user.SubscriptionStatus,
	}
}
