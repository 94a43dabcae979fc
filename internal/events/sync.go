package events

import (
	"context"

	"helpdesk_backend/internal/logger"
)

// SyncDispatcher runs handlers inline on dispatch, used when no broker is
// configured. It keeps the same retry budget as the AMQP path so behavior
// matches either way. Handler failures are logged, not surfaced, so the
// originating request still succeeds.
type SyncDispatcher struct {
	handlers Handlers
}

func NewSyncDispatcher(handlers Handlers) *SyncDispatcher {
	return &SyncDispatcher{handlers: handlers}
}

func (d *SyncDispatcher) Close() error { return nil }

func (d *SyncDispatcher) DispatchTicketCreated(ctx context.Context, ev TicketCreatedEvent) error {
	d.run(ctx, "ticket created", func(ctx context.Context) error {
		return d.handlers.TicketCreated(ctx, ev)
	})
	return nil
}

func (d *SyncDispatcher) DispatchPasswordReset(ctx context.Context, ev PasswordResetEvent) error {
	d.run(ctx, "password reset", func(ctx context.Context) error {
		return d.handlers.PasswordReset(ctx, ev)
	})
	return nil
}

func (d *SyncDispatcher) run(ctx context.Context, name string, fn func(context.Context) error) {
	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		err = fn(ctx)
		if err == nil {
			return
		}
		if IsNonRetriable(err) {
			logger.WithError(err).Warn("dropping event", "event", name)
			return
		}
	}
	logger.WithError(err).Error("event failed after retries", "event", name, "retries", MaxRetries)
}
