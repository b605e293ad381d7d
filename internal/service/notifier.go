package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/advisor-scheduler/internal/mail"
	"github.com/iliyamo/advisor-scheduler/internal/model"
)

const notifyTimeout = 30 * time.Second

// Dispatcher renders notifications and hands them to a mail.Sender in the
// background.  Failures are logged only.
type Dispatcher struct {
	composer *mail.Composer
	sender   mail.Sender
	log      zerolog.Logger
	wg       sync.WaitGroup
}

var _ Notifications = (*Dispatcher)(nil)

func NewDispatcher(composer *mail.Composer, sender mail.Sender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{composer: composer, sender: sender, log: log}
}

// dispatch renders and sends one message on its own goroutine.  The
// request context is detached so the send outlives the response.
func (d *Dispatcher) dispatch(ctx context.Context, kind string, render func() (mail.Message, error)) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		msg, err := render()
		if err != nil {
			d.log.Error().Err(err).Str("kind", kind).Msg("notification render failed")
			return
		}
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Error().Err(err).Str("kind", kind).Str("to", msg.To).Msg("notification not delivered")
			return
		}
		d.log.Debug().Str("kind", kind).Str("to", msg.To).Msg("notification dispatched")
	}()
}

func (d *Dispatcher) AccountConfirmation(ctx context.Context, to, tok string) {
	d.dispatch(ctx, "account_confirmation", func() (mail.Message, error) { return d.composer.Confirmation(to, tok) })
}

func (d *Dispatcher) PasswordReset(ctx context.Context, to, tok string) {
	d.dispatch(ctx, "password_reset", func() (mail.Message, error) { return d.composer.PasswordReset(to, tok) })
}

func (d *Dispatcher) MeetingScheduled(ctx context.Context, user model.User, advisor model.Advisor, m model.Meeting) {
	d.dispatch(ctx, "meeting_invite", func() (mail.Message, error) {
		return d.composer.MeetingInvite(user.Email, m.StartTime, m.JoinURL)
	})
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	d.dispatch(ctx, "advisor_notice", func() (mail.Message, error) {
		return d.composer.AdvisorNotice(advisor.Email, name, m.Topic, m.StartTime, m.JoinURL)
	})
}

// Wait blocks until every pending notification finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }
