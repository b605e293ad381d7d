package token

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
)

// memStore is an in-memory Store with the same single-winner MarkUsed
// semantics as the MySQL repository.
type memStore struct {
	mu   sync.Mutex
	recs map[string]*model.TokenRecord
}

func newMemStore() *memStore { return &memStore{recs: map[string]*model.TokenRecord{}} }

func (s *memStore) Insert(_ context.Context, userID uint64, tok string, exp time.Time) (model.TokenRecord, error) {
	if userID == 0 {
		return model.TokenRecord{}, repository.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &model.TokenRecord{ID: uint64(len(s.recs) + 1), TokenHash: tok, UserID: userID, ExpiresAt: exp}
	s.recs[tok] = rec
	return *rec, nil
}

func (s *memStore) Find(_ context.Context, tok string) (model.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[tok]
	if !ok {
		return model.TokenRecord{}, repository.ErrNotFound
	}
	return *rec, nil
}

func (s *memStore) MarkUsed(_ context.Context, tok string) (bool, error) {
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

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newEngine(t *testing.T, c *clock) (*Engine, *memStore, *memStore) {
	t.Helper()
	confirm, reset := newMemStore(), newMemStore()
	e, err := New("HS256",
		Kind{Audience: AudienceAccess, Secret: "access-secret", TTL: 30 * time.Minute},
		Kind{Audience: AudienceEmailConfirmation, Secret: "confirm-secret", TTL: 10 * time.Minute, Store: confirm},
		Kind{Audience: AudiencePasswordRecovery, Secret: "reset-secret", TTL: 10 * time.Minute, Store: reset},
	)
	require.NoError(t, err)
	return e.WithClock(c.now), confirm, reset
}

func issueAndPersist(t *testing.T, e *Engine, aud Audience, ttl time.Duration) string {
	t.Helper()
	tok, exp, err := e.Issue(aud, "ana@example.com", 7, ttl)
	require.NoError(t, err)
	_, err = e.Persist(context.Background(), aud, 7, tok, exp)
	require.NoError(t, err)
	return tok
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := &clock{t: time.Now()}
	e, _, _ := newEngine(t, c)

	tok := issueAndPersist(t, e, AudienceEmailConfirmation, 0)
	claims, err := e.Verify(context.Background(), AudienceEmailConfirmation, tok)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Subject)
	assert.Equal(t, uint64(7), claims.UserID)

	// verify does not consume
	_, err = e.Verify(context.Background(), AudienceEmailConfirmation, tok)
	assert.NoError(t, err)
}

func TestVerifyWrongAudienceIsInvalid(t *testing.T) {
	c := &clock{t: time.Now()}
	e, _, _ := newEngine(t, c)

	tok := issueAndPersist(t, e, AudienceEmailConfirmation, 0)
	_, err := e.Verify(context.Background(), AudiencePasswordRecovery, tok)
	assert.Equal(t, apperror.KindTokenInvalid, apperror.KindOf(err))
}

func TestVerifyWrongSecretIsInvalidNeverExpired(t *testing.T) {
	c := &clock{t: time.Now()}
	e, _, _ := newEngine(t, c)
	other, err := New("HS256", Kind{Audience: AudiencePasswordRecovery, Secret: "another-secret", TTL: time.Minute})
	require.NoError(t, err)
	other.WithClock(c.now)

	tok, _, err := other.Issue(AudiencePasswordRecovery, "ana@example.com", 7, time.Second)
	require.NoError(t, err)

	c.t = c.t.Add(time.Hour)
	_, err = e.Verify(context.Background(), AudiencePasswordRecovery, tok)
	assert.Equal(t, apperror.KindTokenInvalid, apperror.KindOf(err))
}

func TestVerifyExpiry(t *testing.T) {
	start := time.Now()
	c := &clock{t: start}
	e, _, _ := newEngine(t, c)
	tok := issueAndPersist(t, e, AudienceEmailConfirmation, 12*time.Second)

	c.t = start.Add(5 * time.Second)
	_, err := e.Verify(context.Background(), AudienceEmailConfirmation, tok)
	assert.NoError(t, err)

	c.t = start.Add(13 * time.Second)
	_, err = e.Verify(context.Background(), AudienceEmailConfirmation, tok)
	assert.Equal(t, apperror.KindTokenExpired, apperror.KindOf(err))
	assert.Equal(t, "Token has expired", err.Error())
}

func TestConsumedTokenFailsEvenIfUnexpired(t *testing.T) {
	c := &clock{t: time.Now()}
	e, _, _ := newEngine(t, c)
	tok := issueAndPersist(t, e, AudiencePasswordRecovery, time.Hour)

	require.NoError(t, e.Consume(context.Background(), AudiencePasswordRecovery, tok))

	_, err := e.Verify(context.Background(), AudiencePasswordRecovery, tok)
	assert.Equal(t, apperror.KindTokenInvalid, apperror.KindOf(err))
	assert.Equal(t, "Invalid token", err.Error())

	// used takes precedence over expiry
	c.t = c.t.Add(2 * time.Hour)
	_, err = e.Verify(context.Background(), AudiencePasswordRecovery, tok)
	assert.Equal(t, "Invalid token", err.Error())
}

func TestConsumeSingleWinner(t *testing.T) {
	c := &clock{t: time.Now()}
	e, _, _ := newEngine(t, c)
	tok := issueAndPersist(t, e, AudienceEmailConfirmation, 0)

	var wins, losses int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.Consume(context.Background(), AudienceEmailConfirmation, tok); err == nil {
				atomic.AddInt32(&wins, 1)
			} else if apperror.KindOf(err) == apperror.KindTokenInvalid {
				atomic.AddInt32(&losses, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(15), losses)
}

func TestConsumeUnknownToken(t *testing.T) {
	c := &clock{t: time.Now()}
	e, _, _ := newEngine(t, c)
	err := e.Consume(context.Background(), AudienceEmailConfirmation, "nope")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, "Token not found", err.Error())
}

func TestPersistUnknownUser(t *testing.T) {
	c := &clock{t: time.Now()}
	e, _, _ := newEngine(t, c)
	tok, exp, err := e.Issue(AudienceEmailConfirmation, "ghost@example.com", 0, 0)
	require.NoError(t, err)
	_, err = e.Persist(context.Background(), AudienceEmailConfirmation, 0, tok, exp)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestAccessTokenHasNoShadowRecord(t *testing.T) {
	c := &clock{t: time.Now()}
	e, _, _ := newEngine(t, c)
	tok, _, err := e.Issue(AudienceAccess, "ana@example.com", 7, 0)
	require.NoError(t, err)

	claims, err := e.Verify(context.Background(), AudienceAccess, tok)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Subject)

	_, err = e.Verify(context.Background(), AudienceEmailConfirmation, tok)
	assert.Equal(t, apperror.KindTokenInvalid, apperror.KindOf(err))
}

func TestNewRejectsNonHMAC(t *testing.T) {
	_, err := New("RS256", Kind{Audience: AudienceAccess, Secret: "x"})
	assert.Error(t, err)
	_, err = New("HS256", Kind{Audience: AudienceAccess})
	assert.Error(t, err)
}
