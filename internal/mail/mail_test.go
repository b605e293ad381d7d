package mail

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/advisor-scheduler/internal/config"
)

func TestComposerLinks(t *testing.T) {
	c, err := NewComposer("http://front.test", "America/Bogota")
	require.NoError(t, err)

	msg, err := c.Confirmation("ana@example.com", "abc.def")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Contains(t, msg.HTML, `href="http://front.test/confirm-account.html?token=abc.def"`)

	msg, err = c.PasswordReset("ana@example.com", "xyz")
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "http://front.test/recover.html?token=xyz")
}

func TestComposerMeetingTimesInLocation(t *testing.T) {
	c, err := NewComposer("http://front.test", "America/Bogota")
	require.NoError(t, err)
	start := time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)

	msg, err := c.MeetingInvite("ana@example.com", start, "https://zoom.test/j/1")
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "2024-06-03 15:00")
	assert.Contains(t, msg.HTML, "https://zoom.test/j/1")

	msg, err = c.AdvisorNotice("adv@example.com", "Ana <b>Lopez</b>", "Taxes", start, "https://zoom.test/j/1")
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "Ana &lt;b&gt;Lopez&lt;/b&gt;", "user input is escaped")
	assert.Contains(t, msg.HTML, "Taxes")
}

type captureSender struct {
	from string
	to   []string
	body bytes.Buffer
}

func (s *captureSender) Send(from string, to []string, msg io.WriterTo) error {
	s.from, s.to = from, to
	_, err := msg.WriteTo(&s.body)
	return err
}

func (s *captureSender) Close() error { return nil }

func TestMailerSendsThroughDialer(t *testing.T) {
	m := NewMailer(config.MailConfig{Username: "bot@example.com"}, zerolog.Nop())
	sink := &captureSender{}
	m.dial = func() (gomail.SendCloser, error) { return sink, nil }

	err := m.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hi", HTML: "<p>hello</p>"})
	require.NoError(t, err)
	assert.Equal(t, "bot@example.com", sink.from)
	assert.Equal(t, []string{"ana@example.com"}, sink.to)
	assert.True(t, strings.Contains(sink.body.String(), "Subject: Hi"))
}

func TestMailerWithoutCredentialsOnlyLogs(t *testing.T) {
	var out bytes.Buffer
	m := NewMailer(config.MailConfig{}, zerolog.New(&out))

	require.NoError(t, m.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hi"}))
	assert.Contains(t, out.String(), "message not sent")
}
