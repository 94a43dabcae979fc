package app

import (
	"helpdesk_backend/internal/logger"
)

// MockEmailProvider logs outgoing mail instead of sending it. Used in
// development when SMTP is not configured.
type MockEmailProvider struct{}

func (m *MockEmailProvider) Send(to, subject, htmlBody string) error {
	logger.Info("Mock email sent", "to", to, "subject", subject, "body_length", len(htmlBody))
	return nil
}
