// Package mail renders and delivers the service's outbound email.
package mail

import "context"

// Message is a rendered HTML email.  It is also the payload published on
// the notification queue.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers a rendered message.  It is satisfied by *Mailer (direct
// SMTP) and by the queue publisher.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
