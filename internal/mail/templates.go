package mail

import (
	"bytes"
	"html/template"
	"time"
	_ "time/tzdata" // meeting timezones resolve without a system zoneinfo
)

const layout = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
<div style="max-width: 600px; margin: 20px auto; padding: 20px; background-color: #ffffff;">
<h1 style="background-color: {{.Color}}; color: #ffffff; padding: 10px 0; text-align: center;">{{.Title}}</h1>
<div style="padding: 20px;">{{template "content" .}}</div>
<p style="background-color: #f1f1f1; color: #777777; text-align: center; padding: 10px 0;">{{.Footer}}</p>
</div>
</body>
</html>`

var (
	confirmationTmpl = must(`{{define "content"}}<p>Hello,</p>
<p>Please follow the link below to confirm your account:</p>
<a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; color: #ffffff; background-color: #4CAF50; text-decoration: none; border-radius: 5px;">Confirm Account</a>{{end}}`)

	resetTmpl = must(`{{define "content"}}<p>Hello,</p>
<p>Please follow the link below to reset your password:</p>
<a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; color: #ffffff; background-color: #ff4c4c; text-decoration: none; border-radius: 5px;">Reset Password</a>{{end}}`)

	inviteTmpl = must(`{{define "content"}}<h3>You scheduled an advisory meeting.</h3>
<h4>Date and time: {{.Start}}</h4>
<p>Join the meeting with this link: <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>{{end}}`)

	advisorTmpl = must(`{{define "content"}}<h3>{{.UserName}} scheduled a meeting with you.</h3>
<h4>Date and time: {{.Start}}</h4>
<h4>Topic: {{.Topic}}</h4>
<p>Join the meeting with this link: <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>{{end}}`)
)

func must(content string) *template.Template {
	t := template.Must(template.New("layout").Parse(layout))
	return template.Must(t.Parse(content))
}

type view struct {
	Title, Color, Footer string
	Link                 string
	Start                string
	JoinURL              string
	Topic                string
	UserName             string
}

// Composer renders the service's emails.  Links point at FrontendBaseURL
// and meeting times are shown in Location.
type Composer struct {
	FrontendBaseURL string
	Location        *time.Location
}

func NewComposer(frontendBaseURL, timezone string) (*Composer, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Composer{FrontendBaseURL: frontendBaseURL, Location: loc}, nil
}

func (c *Composer) render(t *template.Template, v view) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c *Composer) when(t time.Time) string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04 MST")
}

// Confirmation renders the account-confirmation email.
func (c *Composer) Confirmation(to, token string) (Message, error) {
	html, err := c.render(confirmationTmpl, view{
		Title:  "Confirmation of your account",
		Color:  "#4CAF50",
		Footer: "If you received this message by mistake, please ignore this email.",
		Link:   c.FrontendBaseURL + "/confirm-account.html?token=" + token,
	})
	return Message{To: to, Subject: "Confirm your account", HTML: html}, err
}

// PasswordReset renders the password-recovery email.
func (c *Composer) PasswordReset(to, token string) (Message, error) {
	html, err := c.render(resetTmpl, view{
		Title:  "Password Recovery",
		Color:  "#ff4c4c",
		Footer: "If you have not requested to reset your password, please ignore this email.",
		Link:   c.FrontendBaseURL + "/recover.html?token=" + token,
	})
	return Message{To: to, Subject: "Password recovery", HTML: html}, err
}

// MeetingInvite renders the invitation sent to the user who scheduled.
func (c *Composer) MeetingInvite(to string, start time.Time, joinURL string) (Message, error) {
	html, err := c.render(inviteTmpl, view{
		Title:   "Meeting Invitation",
		Color:   "#2D8CFF",
		Footer:  "See you there.",
		Start:   c.when(start),
		JoinURL: joinURL,
	})
	return Message{To: to, Subject: "Advisory meeting invitation", HTML: html}, err
}

// AdvisorNotice renders the notice sent to the assigned advisor.
func (c *Composer) AdvisorNotice(to, userName, topic string, start time.Time, joinURL string) (Message, error) {
	html, err := c.render(advisorTmpl, view{
		Title:    "New Meeting Scheduled",
		Color:    "#2D8CFF",
		Footer:   "This meeting was assigned to you automatically.",
		Start:    c.when(start),
		JoinURL:  joinURL,
		Topic:    topic,
		UserName: userName,
	})
	return Message{To: to, Subject: "New advisory meeting scheduled", HTML: html}, err
}
