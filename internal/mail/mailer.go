package mail

import (
	"context"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/advisor-scheduler/internal/config"
)

// Mailer sends messages over SMTP.  Without credentials it only logs what
// it would have sent, which keeps local development free of an SMTP account.
type Mailer struct {
	from string
	dial func() (gomail.SendCloser, error)
	log  zerolog.Logger
}

var _ Sender = (*Mailer)(nil)

func NewMailer(cfg config.MailConfig, log zerolog.Logger) *Mailer {
	m := &Mailer{from: cfg.From, log: log}
	if m.from == "" {
		m.from = cfg.Username
	}
	if cfg.Username != "" && cfg.Password != "" {
		d := gomail.NewDialer(cfg.Server, cfg.Port, cfg.Username, cfg.Password)
		m.dial = d.Dial
	}
	return m
}

// Send delivers msg.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.dial == nil {
		m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail transport not configured, message not sent")
		return nil
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	s, err := m.dial()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	if err := gomail.Send(s, gm); err != nil {
		return err
	}
	m.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail sent")
	return nil
}
