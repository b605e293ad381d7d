// Package zoom is a small client for the Zoom meetings API authenticated
// with server-to-server OAuth (account credentials grant).
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/iliyamo/advisor-scheduler/internal/config"
)

// DefaultTimeout bounds every provider call when none is configured.
const DefaultTimeout = 10 * time.Second

// Meeting is the subset of the provider's meeting object the service keeps.
type Meeting struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	StartTime time.Time `json:"start_time"`
	JoinURL   string    `json:"join_url"`
}

// ExternalID is the meeting id as stored locally.
func (m Meeting) ExternalID() string { return strconv.FormatInt(m.ID, 10) }

type settings struct {
	JoinBeforeHost   bool `json:"join_before_host"`
	JBHTime          int  `json:"jbh_time"`
	RegistrationType int  `json:"registration_type"`
	EnforceLogin     bool `json:"enforce_login"`
	WaitingRoom      bool `json:"waiting_room"`
}

type meetingRequest struct {
	Topic     string   `json:"topic,omitempty"`
	Type      int      `json:"type,omitempty"`
	StartTime string   `json:"start_time"`
	Duration  int      `json:"duration"`
	Timezone  string   `json:"timezone"`
	Settings  settings `json:"settings"`
}

// StatusError is returned when the provider answers with an unexpected
// status code.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("zoom: %s %s: unexpected status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to the Zoom REST API.
type Client struct {
	http     *http.Client
	baseURL  string
	timezone string
	timeout  time.Duration
}

// New builds a client whose HTTP transport fetches and caches access
// tokens from cfg.OAuthURL.
func New(cfg config.ZoomConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.OAuthURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
	}
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	hc := cc.Client(ctx)
	hc.Timeout = timeout
	tz := cfg.Timezone
	if tz == "" {
		tz = "America/Bogota"
	}
	return &Client{http: hc, baseURL: cfg.APIURL, timezone: tz, timeout: timeout}
}

func (c *Client) request(start time.Time, topic string, typ int) meetingRequest {
	return meetingRequest{
		Topic:     topic,
		Type:      typ,
		StartTime: start.UTC().Format("2006-01-02T15:04:05Z"),
		Duration:  30,
		Timezone:  c.timezone,
		Settings: settings{
			JoinBeforeHost:   true,
			JBHTime:          5,
			RegistrationType: 2,
			EnforceLogin:     false,
			WaitingRoom:      false,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("zoom: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(msg)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// CreateMeeting schedules a 30 minute meeting.  Success is 201 Created.
func (c *Client) CreateMeeting(ctx context.Context, topic string, start time.Time) (Meeting, error) {
	var m Meeting
	if err := c.do(ctx, http.MethodPost, "/users/me/meetings", c.request(start, topic, 2), http.StatusCreated, &m); err != nil {
		return Meeting{}, err
	}
	return m, nil
}

// UpdateMeeting moves a meeting to start.  Success is 204 No Content.
func (c *Client) UpdateMeeting(ctx context.Context, externalID, topic string, start time.Time) error {
	return c.do(ctx, http.MethodPatch, "/meetings/"+url.PathEscape(externalID), c.request(start, topic, 0), http.StatusNoContent, nil)
}

// DeleteMeeting cancels a meeting.  Success is 204 No Content.
func (c *Client) DeleteMeeting(ctx context.Context, externalID string) error {
	return c.do(ctx, http.MethodDelete, "/meetings/"+url.PathEscape(externalID), nil, http.StatusNoContent, nil)
}
