// Package service holds the business rules of the scheduler: account
// lifecycle, authentication, advisor rotation and meeting orchestration.
// Collaborators are injected as the small interfaces below so the rules
// can be exercised without MySQL, Redis or Zoom.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
	"github.com/iliyamo/advisor-scheduler/internal/token"
	"github.com/iliyamo/advisor-scheduler/internal/utils"
	"github.com/iliyamo/advisor-scheduler/internal/zoom"
)

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByPhone(ctx context.Context, phone string) (model.User, error)
	GetByDocument(ctx context.Context, document string) (model.User, error)
	List(ctx context.Context, skip, limit int) ([]model.User, error)
	Update(ctx context.Context, id uint64, upd model.UserUpdate) error
	SetActive(ctx context.Context, id uint64, active bool) error
	SetExternalToken(ctx context.Context, id uint64, token string) error
	Delete(ctx context.Context, id uint64) error
}

// AdvisorStore persists advisors and hands out the next one in rotation.
type AdvisorStore interface {
	Create(ctx context.Context, name, email string) (model.Advisor, error)
	GetByEmail(ctx context.Context, email string) (model.Advisor, error)
	List(ctx context.Context) ([]model.Advisor, error)
	Next(ctx context.Context) (model.Advisor, error)
}

// MeetingStore persists meetings.
type MeetingStore interface {
	CreateScheduled(ctx context.Context, m model.Meeting, scheduledAt time.Time) (model.Meeting, error)
	GetByExternalID(ctx context.Context, externalID string) (model.Meeting, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Meeting, error)
	UpdateStartTime(ctx context.Context, externalID string, start time.Time) error
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// MeetingProvider is the video-conferencing API.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, topic string, start time.Time) (zoom.Meeting, error)
	UpdateMeeting(ctx context.Context, externalID, topic string, start time.Time) error
	DeleteMeeting(ctx context.Context, externalID string) error
}

// Tokens issues and checks signed tokens.
type Tokens interface {
	Issue(aud token.Audience, subject string, userID uint64, ttl time.Duration) (string, time.Time, error)
	Persist(ctx context.Context, aud token.Audience, userID uint64, tok string, exp time.Time) (model.TokenRecord, error)
	Verify(ctx context.Context, aud token.Audience, tok string) (token.Claims, error)
	Consume(ctx context.Context, aud token.Audience, tok string) error
}

// PasswordHasher is the one-way credential check.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// Notifications are fire-and-forget: implementations log failures and
// never report them to the caller.
type Notifications interface {
	AccountConfirmation(ctx context.Context, to, tok string)
	PasswordReset(ctx context.Context, to, tok string)
	MeetingScheduled(ctx context.Context, user model.User, advisor model.Advisor, m model.Meeting)
}

var (
	_ UserStore       = (*repository.UserRepo)(nil)
	_ AdvisorStore    = (*repository.AdvisorRepo)(nil)
	_ MeetingStore    = (*repository.MeetingRepo)(nil)
	_ MeetingProvider = (*zoom.Client)(nil)
	_ Tokens          = (*token.Engine)(nil)
	_ PasswordHasher  = utils.Hasher{}
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 7
