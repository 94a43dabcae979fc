package events

import "context"

// TicketCreatedEvent triggers async triage of a freshly filed ticket.
type TicketCreatedEvent struct {
	TicketID    string `json:"ticketId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy"`
}

// PasswordResetEvent triggers reset-mail delivery for an account.
type PasswordResetEvent struct {
	Email     string `json:"email"`
	ResetLink string `json:"resetLink"`
}

// Handlers holds the consumer-side callbacks for each event kind. A handler
// returning a NonRetriableError is acked without retry; any other error is
// retried up to MaxRetries.
type Handlers struct {
	TicketCreated func(ctx context.Context, ev TicketCreatedEvent) error
	PasswordReset func(ctx context.Context, ev PasswordResetEvent) error
}

// Dispatcher fans events out to the worker side. Dispatch must not fail the
// calling request when the broker is down; implementations degrade to inline
// handling instead.
type Dispatcher interface {
	DispatchTicketCreated(ctx context.Context, ev TicketCreatedEvent) error
	DispatchPasswordReset(ctx context.Context, ev PasswordResetEvent) error
	Close() error
}
