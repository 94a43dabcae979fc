package dto

import "helpdesk_backend/internal/models"

type SignupRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Skills   []string `json:"skills"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordResponse is identical for known and unknown emails; only
// the mail side effect differs. ResetLink is populated in development mode
// only.
type ForgotPasswordResponse struct {
	Message      string `json:"message"`
	MailDelivery string `json:"mailDelivery,omitempty"`
	ResetLink    string `json:"resetLink,omitempty"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest is the admin-side role/skills update, keyed by email.
type UpdateUserRequest struct {
	Email  string   `json:"email" validate:"required,email"`
	Role   string   `json:"role"`
	Skills []string `json:"skills"`
}

type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type CreditInfo struct {
	CreditsRemaining   int                       `json:"creditsRemaining"`
	CreditsUsed        int                       `json:"creditsUsed"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus"`
}

type CreateTicketResponse struct {
	Message string         `json:"message"`
	Ticket  *models.Ticket `json:"ticket"`
	Credits *CreditInfo    `json:"credits,omitempty"`
}

// ModeratorStats is the caller's scorekeeping snapshot on the assigned view.
type ModeratorStats struct {
	IssuesResolved int `json:"issuesResolved"`
	Score          int `json:"score"`
}

type AssignedTicketsResponse struct {
	Tickets         []models.Ticket               `json:"tickets"`
	Stats           ModeratorStats                `json:"stats"`
	ResolvedHistory []models.ResolvedTicketRecord `json:"resolvedHistory"`
}

type UpdateTicketStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PaymentConfigResponse is public checkout bootstrap data for the client.
// Configured reports whether a gateway backs order creation at all.
type PaymentConfigResponse struct {
	KeyID      string `json:"keyId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Credits    int    `json:"credits"`
	PlanID     string `json:"planId"`
	Mock       bool   `json:"mock"`
	Configured bool   `json:"configured"`
}

type CreateOrderResponse struct {
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"keyId"`
	Credits     int    `json:"credits"`
	PlanID      string `json:"planId"`
	Mock        bool   `json:"mock"`
	DisplayName string `json:"displayName,omitempty"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// VerifyPaymentResponse reports Duplicate=true when the payment was already
// verified; the credit was applied exactly once either way.
type VerifyPaymentResponse struct {
	Message   string       `json:"message"`
	Duplicate bool         `json:"duplicate"`
	User      *models.User `json:"user"`
	Credits   *CreditInfo  `json:"credits"`
}
