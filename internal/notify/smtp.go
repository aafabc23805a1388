package notify

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-tracker/internal/config"
	"gopkg.in/gomail.v2"
)

// Dialer sends prepared messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier relays notifications through an SMTP server.
type SMTPNotifier struct {
	dialer    Dialer
	fromEmail string
	fromName  string
}

func NewSMTPNotifier(cfg config.NotifyConfig) *SMTPNotifier {
	d := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	return NewSMTPNotifierWithDialer(d, cfg.FromName, cfg.FromEmail)
}

func NewSMTPNotifierWithDialer(d Dialer, fromName, fromEmail string) *SMTPNotifier {
	return &SMTPNotifier{dialer: d, fromEmail: fromEmail, fromName: fromName}
}

func (s *SMTPNotifier) Notify(_ context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
