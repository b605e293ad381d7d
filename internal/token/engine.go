// Package token issues and verifies the signed tokens used by the service:
// short-lived access tokens and the two single-use flows (email
// confirmation and password recovery).  Every audience has its own secret,
// so a token minted for one flow never validates in another.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
)

// Audience tags the purpose a token was minted for.
type Audience string

const (
	AudienceAccess            Audience = "access"
	AudienceEmailConfirmation Audience = "email-confirmation"
	AudiencePasswordRecovery  Audience = "password-recovery"
)

// Claims is the signed payload.  Subject carries the user's email; UserID
// is optional.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"id,omitempty"`
}

// Store keeps the shadow record of a single-use token.  It is satisfied by
// *repository.TokenRepo.
type Store interface {
	Insert(ctx context.Context, userID uint64, token string, exp time.Time) (model.TokenRecord, error)
	Find(ctx context.Context, token string) (model.TokenRecord, error)
	MarkUsed(ctx context.Context, token string) (bool, error)
}

var _ Store = (*repository.TokenRepo)(nil)

// Kind configures one audience.  Store is nil for access tokens, which have
// no shadow record.
type Kind struct {
	Audience Audience
	Secret   string
	TTL      time.Duration
	Store    Store
}

// Engine signs and verifies tokens for a fixed set of audiences.
type Engine struct {
	method jwt.SigningMethod
	kinds  map[Audience]Kind
	now    func() time.Time
}

// New builds an engine using the HMAC algorithm named by alg.
func New(alg string, kinds ...Kind) (*Engine, error) {
	m, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token: unsupported algorithm %q", alg)
	}
	e := &Engine{method: m, kinds: make(map[Audience]Kind, len(kinds)), now: time.Now}
	for _, k := range kinds {
		if k.Secret == "" {
			return nil, fmt.Errorf("token: empty secret for audience %q", k.Audience)
		}
		e.kinds[k.Audience] = k
	}
	return e, nil
}

// WithClock replaces the time source used for issuing and verifying.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) kind(aud Audience) (Kind, error) {
	k, ok := e.kinds[aud]
	if !ok {
		return Kind{}, apperror.Internal("SigningError", fmt.Errorf("token: unknown audience %q", aud))
	}
	return k, nil
}

// Issue signs a token for subject with the audience's secret.  A ttl of
// zero or less selects the audience default.
func (e *Engine) Issue(aud Audience, subject string, userID uint64, ttl time.Duration) (string, time.Time, error) {
	k, err := e.kind(aud)
	if err != nil {
		return "", time.Time{}, err
	}
	if ttl <= 0 {
		ttl = k.TTL
	}
	now := e.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{string(aud)},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		UserID: userID,
	}
	signed, err := jwt.NewWithClaims(e.method, claims).SignedString([]byte(k.Secret))
	if err != nil {
		return "", time.Time{}, apperror.Internal("SigningError", err)
	}
	return signed, exp, nil
}

// Persist stores the shadow record of a single-use token.
func (e *Engine) Persist(ctx context.Context, aud Audience, userID uint64, token string, exp time.Time) (model.TokenRecord, error) {
	k, err := e.kind(aud)
	if err != nil {
		return model.TokenRecord{}, err
	}
	if k.Store == nil {
		return model.TokenRecord{}, apperror.Internal("token store not configured", fmt.Errorf("audience %q", aud))
	}
	rec, err := k.Store.Insert(ctx, userID, token, exp)
	if errors.Is(err, repository.ErrNotFound) {
		return model.TokenRecord{}, apperror.NotFound("User not found")
	}
	if err != nil {
		return model.TokenRecord{}, apperror.Internal("could not store token", err)
	}
	return rec, nil
}

// Verify checks token for aud.  A shadow record marked used fails with
// "Invalid token" before the signature is looked at; otherwise an expired
// token fails with TOKEN_EXPIRED and anything else that does not verify
// fails with TOKEN_INVALID.  Verify never consumes the token.
func (e *Engine) Verify(ctx context.Context, aud Audience, token string) (Claims, error) {
	k, err := e.kind(aud)
	if err != nil {
		return Claims{}, err
	}
	if k.Store != nil {
		rec, err := k.Store.Find(ctx, token)
		switch {
		case err == nil && rec.IsUsed:
			return Claims{}, apperror.TokenUsed()
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return Claims{}, apperror.Internal("could not load token", err)
		}
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return []byte(k.Secret), nil },
		jwt.WithValidMethods([]string{e.method.Alg()}),
		jwt.WithAudience(string(aud)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(e.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, apperror.TokenInvalid()
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, apperror.TokenExpired()
	default:
		return Claims{}, apperror.TokenInvalid()
	}
	if claims.Subject == "" {
		return Claims{}, apperror.TokenInvalid()
	}
	return claims, nil
}

// Consume marks the shadow record used.  Only one caller wins the
// transition; a concurrent loser gets "Invalid token".
func (e *Engine) Consume(ctx context.Context, aud Audience, token string) error {
	k, err := e.kind(aud)
	if err != nil {
		return err
	}
	if k.Store == nil {
		return apperror.Internal("token store not configured", fmt.Errorf("audience %q", aud))
	}
	won, err := k.Store.MarkUsed(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("Token not found")
	}
	if err != nil {
		return apperror.Internal("could not update token", err)
	}
	if !won {
		return apperror.TokenUsed()
	}
	return nil
}
