package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/advisor-scheduler/internal/mail"
)

// Publisher publishes EmailEvents to a durable queue.  The connection is
// opened on first use and re-opened after the broker drops it.
type Publisher struct {
	url   string
	queue string
	log   zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ mail.Sender = (*Publisher)(nil)

func NewPublisher(url, queue string, log zerolog.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, queue: queue, log: log}
}

// channel returns an open channel, dialing when needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// Send publishes msg as a persistent EmailEvent.
func (p *Publisher) Send(ctx context.Context, msg mail.Message) error {
	body, err := json.Marshal(EmailEvent{Message: msg, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		p.log.Error().Err(err).Str("queue", p.queue).Msg("publish failed")
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.log.Error().Err(err).Str("queue", p.queue).Msg("publish failed")
		_ = ch.Close()
		p.ch = nil
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
