package workers

import (
	"context"

	"helpdesk_backend/internal/events"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/services"
)

// EventWorker drains the broker queues, running the ticket pipeline and
// reset-mail delivery out of band of the HTTP requests that produced them.
type EventWorker struct {
	dispatcher *events.AMQPDispatcher
	tickets    services.TicketService
	authSvc    services.AuthService
}

func NewEventWorker(dispatcher *events.AMQPDispatcher, tickets services.TicketService, authSvc services.AuthService) *EventWorker {
	return &EventWorker{
		dispatcher: dispatcher,
		tickets:    tickets,
		authSvc:    authSvc,
	}
}

// Handlers returns the consumer callbacks. Exposed separately so the
// synchronous fallback dispatcher can run the identical logic inline.
func (w *EventWorker) Handlers() events.Handlers {
	return events.Handlers{
		TicketCreated: func(ctx context.Context, ev events.TicketCreatedEvent) error {
			return w.tickets.ProcessTicket(ctx, ev.TicketID)
		},
		PasswordReset: func(ctx context.Context, ev events.PasswordResetEvent) error {
			return w.authSvc.SendResetEmail(ctx, ev)
		},
	}
}

// Start begins consuming both queues until ctx is cancelled.
func (w *EventWorker) Start(ctx context.Context) error {
	if err := w.dispatcher.Consume(ctx, w.Handlers()); err != nil {
		return err
	}
	logger.Info("event worker started")
	return nil
}
