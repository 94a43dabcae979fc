package models

type UserRole string
type SubscriptionStatus string
type PaymentStatus string
type TicketPriority string

const (
	UserRoleUser      UserRole = "user"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"

	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"

	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusFailed   PaymentStatus = "failed"

	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

// Ticket status is a free-form string. These are the values the machinery
// recognizes; "Todo" is the human-facing default a fresh ticket carries
// before the analysis pipeline picks it up.
const (
	TicketStatusNew      = "Todo"
	TicketStatusTodo     = "TODO"
	TicketStatusPending  = "PENDING"
	TicketStatusResolved = "RESOLVED"
)

// ResolutionPoints is the score award a moderator earns per resolved ticket.
const ResolutionPoints = 10

// ValidRole reports whether role is one of the recognized user roles.
func ValidRole(role UserRole) bool {
	switch role {
	case UserRoleUser, UserRoleModerator, UserRoleAdmin:
		return true
	}
	return false
}

// NormalizePriority maps arbitrary adapter output onto the priority enum,
// defaulting to medium.
func NormalizePriority(raw string) TicketPriority {
	switch TicketPriority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return TicketPriority(raw)
	}
	return PriorityMedium
}
