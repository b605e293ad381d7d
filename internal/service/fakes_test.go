package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
	"github.com/iliyamo/advisor-scheduler/internal/token"
	"github.com/iliyamo/advisor-scheduler/internal/utils"
	"github.com/iliyamo/advisor-scheduler/internal/zoom"
)

// memUsers is an in-memory UserStore with the same unique keys as the
// users table.
type memUsers struct {
	mu   sync.Mutex
	rows map[uint64]model.User
	next uint64
}

func newMemUsers() *memUsers { return &memUsers{rows: map[uint64]model.User{}} }

func eq(a, b *string) bool { return a != nil && b != nil && *a == *b }

func (m *memUsers) dup(u model.User, self uint64) string {
	for id, r := range m.rows {
		if id == self {
			continue
		}
		switch {
		case r.Email == u.Email:
			return "email"
		case eq(r.PhoneNumber, u.PhoneNumber):
			return "phone_number"
		case eq(r.Document, u.Document):
			return "document"
		}
	}
	return ""
}

func (m *memUsers) Create(_ context.Context, u model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.dup(u, 0); f != "" {
		return 0, &repository.DuplicateError{Field: f}
	}
	m.next++
	u.ID = m.next
	u.CreatedAt = time.Now().UTC()
	m.rows[u.ID] = u
	return u.ID, nil
}

func (m *memUsers) find(match func(model.User) bool) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memUsers) GetByPhone(_ context.Context, phone string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.PhoneNumber != nil && *u.PhoneNumber == phone })
}

func (m *memUsers) GetByDocument(_ context.Context, doc string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.Document != nil && *u.Document == doc })
}

func (m *memUsers) List(_ context.Context, skip, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for id := uint64(1); id <= m.next; id++ {
		if u, ok := m.rows[id]; ok {
			out = append(out, u)
		}
	}
	if skip > len(out) {
		return []model.User{}, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) Update(_ context.Context, id uint64, upd model.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.SecondName != nil {
		u.SecondName = emptyToNil(upd.SecondName)
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = emptyToNil(upd.PhoneNumber)
	}
	if upd.Document != nil {
		u.Document = emptyToNil(upd.Document)
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = upd.PasswordHash
	}
	if upd.LastMeetingScheduled != nil {
		u.LastMeetingScheduled = upd.LastMeetingScheduled
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.GoogleAccessToken != nil {
		u.GoogleAccessToken = upd.GoogleAccessToken
	}
	if f := m.dup(u, id); f != "" {
		return &repository.DuplicateError{Field: f}
	}
	m.rows[id] = u
	return nil
}

// emptyToNil mirrors the NULL mapping of the users table.
func emptyToNil(s *string) *string {
	if *s == "" {
		return nil
	}
	return s
}

func (m *memUsers) SetActive(ctx context.Context, id uint64, active bool) error {
	return m.Update(ctx, id, model.UserUpdate{IsActive: &active})
}

func (m *memUsers) SetExternalToken(ctx context.Context, id uint64, tok string) error {
	return m.Update(ctx, id, model.UserUpdate{GoogleAccessToken: &tok})
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// memTokens mirrors repository.TokenRepo.
type memTokens struct {
	mu   sync.Mutex
	recs map[string]*model.TokenRecord
}

func newMemTokens() *memTokens { return &memTokens{recs: map[string]*model.TokenRecord{}} }

func (s *memTokens) Insert(_ context.Context, userID uint64, tok string, exp time.Time) (model.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &model.TokenRecord{ID: uint64(len(s.recs) + 1), TokenHash: tok, UserID: userID, ExpiresAt: exp}
	s.recs[tok] = rec
	return *rec, nil
}

func (s *memTokens) Find(_ context.Context, tok string) (model.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[tok]; ok {
		return *rec, nil
	}
	return model.TokenRecord{}, repository.ErrNotFound
}

func (s *memTokens) MarkUsed(_ context.Context, tok string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[tok]
	if !ok {
		return false, repository.ErrNotFound
	}
	if rec.IsUsed {
		return false, nil
	}
	rec.IsUsed = true
	return true, nil
}

// brokenStore accepts no token records.
type brokenStore struct{ memTokens }

func (*brokenStore) Insert(context.Context, uint64, string, time.Time) (model.TokenRecord, error) {
	return model.TokenRecord{}, errors.New("data too long for column")
}

// recordingNotifier keeps the last token mailed to each address.
type recordingNotifier struct {
	mu            sync.Mutex
	confirmations map[string]string
	resets        map[string]string
	meetings      []model.Meeting
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{confirmations: map[string]string{}, resets: map[string]string{}}
}

func (n *recordingNotifier) AccountConfirmation(_ context.Context, to, tok string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations[to] = tok
}

func (n *recordingNotifier) PasswordReset(_ context.Context, to, tok string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[to] = tok
}

func (n *recordingNotifier) MeetingScheduled(_ context.Context, _ model.User, _ model.Advisor, m model.Meeting) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.meetings = append(n.meetings, m)
}

type authFixture struct {
	users  *memUsers
	svc    *UserService
	auth   *AuthService
	notify *recordingNotifier
	engine *token.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	return newAuthFixtureWithConfirmStore(t, newMemTokens())
}

func newAuthFixtureWithConfirmStore(t *testing.T, confirm token.Store) *authFixture {
	t.Helper()
	engine, err := token.New("HS256",
		token.Kind{Audience: token.AudienceAccess, Secret: "a", TTL: 30 * time.Minute},
		token.Kind{Audience: token.AudienceEmailConfirmation, Secret: "c", TTL: 10 * time.Minute, Store: confirm},
		token.Kind{Audience: token.AudiencePasswordRecovery, Secret: "r", TTL: 10 * time.Minute, Store: newMemTokens()},
	)
	require.NoError(t, err)
	users := newMemUsers()
	hasher := utils.NewHasher(bcrypt.MinCost)
	svc := NewUserService(users, hasher)
	notify := newRecordingNotifier()
	return &authFixture{
		users:  users,
		svc:    svc,
		auth:   NewAuthService(svc, engine, hasher, notify),
		notify: notify,
		engine: engine,
	}
}

func strp(s string) *string { return &s }

// Mocks for the collaborators of MeetingService.

type mockProvider struct{ mock.Mock }

func (m *mockProvider) CreateMeeting(ctx context.Context, topic string, start time.Time) (zoom.Meeting, error) {
	args := m.Called(ctx, topic, start)
	return args.Get(0).(zoom.Meeting), args.Error(1)
}

func (m *mockProvider) UpdateMeeting(ctx context.Context, externalID, topic string, start time.Time) error {
	return m.Called(ctx, externalID, topic, start).Error(0)
}

func (m *mockProvider) DeleteMeeting(ctx context.Context, externalID string) error {
	return m.Called(ctx, externalID).Error(0)
}

type mockAdvisors struct{ mock.Mock }

func (m *mockAdvisors) Create(ctx context.Context, name, email string) (model.Advisor, error) {
	args := m.Called(ctx, name, email)
	return args.Get(0).(model.Advisor), args.Error(1)
}

func (m *mockAdvisors) GetByEmail(ctx context.Context, email string) (model.Advisor, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.Advisor), args.Error(1)
}

func (m *mockAdvisors) List(ctx context.Context) ([]model.Advisor, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Advisor), args.Error(1)
}

func (m *mockAdvisors) Next(ctx context.Context) (model.Advisor, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Advisor), args.Error(1)
}

type mockMeetings struct{ mock.Mock }

func (m *mockMeetings) CreateScheduled(ctx context.Context, mt model.Meeting, at time.Time) (model.Meeting, error) {
	args := m.Called(ctx, mt, at)
	return args.Get(0).(model.Meeting), args.Error(1)
}

func (m *mockMeetings) GetByExternalID(ctx context.Context, externalID string) (model.Meeting, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(model.Meeting), args.Error(1)
}

func (m *mockMeetings) ListByUser(ctx context.Context, userID uint64) ([]model.Meeting, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Meeting), args.Error(1)
}

func (m *mockMeetings) UpdateStartTime(ctx context.Context, externalID string, start time.Time) error {
	return m.Called(ctx, externalID, start).Error(0)
}

func (m *mockMeetings) DeleteByExternalID(ctx context.Context, externalID string) error {
	return m.Called(ctx, externalID).Error(0)
}
