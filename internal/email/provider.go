package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"helpdesk_backend/internal/logger"
)

// Provider sends transactional mail. Implementations must be safe for
// concurrent use.
type Provider interface {
	Send(to, subject, htmlBody string) error
}

// SMTPProvider delivers mail over SMTP with gomail.
type SMTPProvider struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPProvider(host string, port int, username, password, from, fromName string) *SMTPProvider {
	return &SMTPProvider{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		fromName: fromName,
	}
}

func (p *SMTPProvider) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.from, p.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := p.dialer.DialAndSend(m); err != nil {
		logger.WithError(err).Error("failed to send email", "to", to, "subject", subject)
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
