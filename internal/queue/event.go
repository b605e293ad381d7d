// Package queue carries outbound email over RabbitMQ so request handlers
// never wait on SMTP.
package queue

import (
	"time"

	"github.com/iliyamo/advisor-scheduler/internal/mail"
)

// DefaultQueue is the durable queue holding pending emails.
const DefaultQueue = "notifications.email"

// EmailEvent is the message body published for every outbound email.
type EmailEvent struct {
	mail.Message
	EnqueuedAt time.Time `json:"enqueued_at"`
}
