// Package notify delivers owner notifications (follow-up reminders and
// last-chance alerts) over SES, SMTP, an AMQP queue or the log.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/outreach-tracker/internal/config"
	"github.com/ignite/outreach-tracker/internal/service/outreach"
)

// Message is one notification as queued for an external mail worker.
type Message struct {
	To        string    `json:"to"`
	FromEmail string    `json:"from_email"`
	FromName  string    `json:"from_name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	QueuedAt  time.Time `json:"queued_at"`
}

// New builds the notifier selected by cfg.Transport. The AMQP notifier
// holds a broker connection and should be closed on shutdown.
func New(ctx context.Context, cfg config.NotifyConfig) (outreach.Notifier, error) {
	switch cfg.Transport {
	case "", "log":
		return NewLogNotifier(), nil
	case "ses":
		n, err := NewSESNotifier(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "smtp":
		return NewSMTPNotifier(cfg), nil
	case "amqp":
		n, err := DialAMQP(cfg)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown notify transport %q", cfg.Transport)
	}
}

func fromAddress(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
