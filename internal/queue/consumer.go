package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/advisor-scheduler/internal/mail"
)

// Consumer drains the email queue and hands each message to a Sender
// (normally the SMTP mailer).
type Consumer struct {
	url    string
	queue  string
	sender mail.Sender
	log    zerolog.Logger
}

func NewConsumer(url, queue string, sender mail.Sender, log zerolog.Logger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Consumer{url: url, queue: queue, sender: sender, log: log}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff (capped at 30s) whenever the
// connection is lost.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("email consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("email consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("email consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

// errMalformed marks payloads that can never be delivered.
var errMalformed = errors.New("malformed email event")

// deliver sends one message and settles it.  Malformed payloads are
// dropped; a failed send is requeued once and dropped on the second
// failure.
func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	err := c.handle(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errMalformed):
		c.log.Error().Err(err).Msg("email consumer: dropping malformed message")
		_ = d.Nack(false, false)
	case !d.Redelivered:
		c.log.Warn().Err(err).Msg("email consumer: send failed, requeueing")
		_ = d.Nack(false, true)
	default:
		c.log.Error().Err(err).Msg("email consumer: send failed twice, dropping")
		_ = d.Nack(false, false)
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev EmailEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.To == "" {
		return fmt.Errorf("%w: no recipient", errMalformed)
	}
	return c.sender.Send(ctx, ev.Message)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
