package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ignite/outreach-tracker/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the channel operation used to enqueue a message.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier hands notifications to a mail worker through a durable
// RabbitMQ queue.
type AMQPNotifier struct {
	conn      *amqp.Connection
	ch        Publisher
	queue     string
	fromEmail string
	fromName  string
}

// DialAMQP connects, declares the queue and returns a notifier.
func DialAMQP(cfg config.NotifyConfig) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.AMQP.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", cfg.AMQP.Queue, err)
	}
	log.Printf("[AMQP] Publishing notifications to queue %s", cfg.AMQP.Queue)

	n := NewAMQPNotifier(ch, cfg.AMQP.Queue, cfg.FromName, cfg.FromEmail)
	n.conn = conn
	return n, nil
}

func NewAMQPNotifier(ch Publisher, queue, fromName, fromEmail string) *AMQPNotifier {
	return &AMQPNotifier{ch: ch, queue: queue, fromEmail: fromEmail, fromName: fromName}
}

func (n *AMQPNotifier) Notify(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(Message{
		To:        to,
		FromEmail: n.fromEmail,
		FromName:  n.fromName,
		Subject:   subject,
		Body:      body,
		QueuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = n.ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close closes the broker connection, if this notifier owns one.
func (n *AMQPNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
