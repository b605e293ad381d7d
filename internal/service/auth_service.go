package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/token"
)

// Session is the result of a successful login.
type Session struct {
	User        model.User
	AccessToken string
	ExpiresAt   time.Time
}

// ExternalProfile is what an external identity provider tells us about a user.
type ExternalProfile struct {
	Email       string
	FirstName   string
	LastName    string
	AccessToken string
}

// AuthService implements registration, login and the single-use token flows.
type AuthService struct {
	users  *UserService
	tokens Tokens
	hasher PasswordHasher
	notify Notifications
}

func NewAuthService(users *UserService, tokens Tokens, hasher PasswordHasher, notify Notifications) *AuthService {
	return &AuthService{users: users, tokens: tokens, hasher: hasher, notify: notify}
}

// sendConfirmation issues, stores and mails an email-confirmation token.
func (s *AuthService) sendConfirmation(ctx context.Context, u model.User) error {
	tok, exp, err := s.tokens.Issue(token.AudienceEmailConfirmation, u.Email, u.ID, 0)
	if err != nil {
		return err
	}
	if _, err := s.tokens.Persist(ctx, token.AudienceEmailConfirmation, u.ID, tok, exp); err != nil {
		return err
	}
	s.notify.AccountConfirmation(ctx, u.Email, tok)
	return nil
}

// createAndConfirm creates the account and sends its confirmation token.
// When the token cannot be stored the account is removed again, so the
// email stays free for another attempt.
func (s *AuthService) createAndConfirm(ctx context.Context, in NewUser, p CreatePolicy) (model.User, error) {
	u, err := s.users.Create(ctx, in, p)
	if err != nil {
		return model.User{}, err
	}
	if err := s.sendConfirmation(ctx, u); err != nil {
		if derr := s.users.Delete(ctx, u.ID); derr != nil {
			return model.User{}, apperror.Internal("could not roll back registration", errors.Join(err, derr))
		}
		return model.User{}, err
	}
	return u, nil
}

// Register creates an inactive REGULAR account and mails a confirmation link.
func (s *AuthService) Register(ctx context.Context, in NewUser) (model.User, error) {
	return s.createAndConfirm(ctx, in, RegisterPolicy)
}

// ConfirmAccount activates the account named by an email-confirmation
// token and burns the token.
func (s *AuthService) ConfirmAccount(ctx context.Context, tok string) (model.User, error) {
	claims, err := s.tokens.Verify(ctx, token.AudienceEmailConfirmation, tok)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return model.User{}, err
	}
	if claims.UserID != 0 && claims.UserID != u.ID {
		return model.User{}, apperror.TokenInvalid()
	}
	u, err = s.users.Activate(ctx, u.ID)
	if err != nil {
		return model.User{}, err
	}
	if err := s.tokens.Consume(ctx, token.AudienceEmailConfirmation, tok); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (s *AuthService) newSession(u model.User) (Session, error) {
	tok, exp, err := s.tokens.Issue(token.AudienceAccess, u.Email, u.ID, 0)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, AccessToken: tok, ExpiresAt: exp}, nil
}

// Login checks email and password.  Unknown email, passwordless account
// and wrong password all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if apperror.KindOf(err) == apperror.KindNotFound {
		return Session{}, apperror.CredentialsInvalid()
	}
	if err != nil {
		return Session{}, err
	}
	if u.PasswordHash == nil || !s.hasher.Verify(password, *u.PasswordHash) {
		return Session{}, apperror.CredentialsInvalid()
	}
	return s.newSession(u)
}

// ExternalLogin signs in a user vouched for by an external provider.  A
// first-time email gets a passwordless account plus a confirmation email;
// a known one gets its stored provider token refreshed.
func (s *AuthService) ExternalLogin(ctx context.Context, p ExternalProfile) (Session, error) {
	u, err := s.users.FindByEmail(ctx, p.Email)
	switch {
	case apperror.KindOf(err) == apperror.KindNotFound:
		at := p.AccessToken
		u, err = s.createAndConfirm(ctx, NewUser{
			FirstName:         p.FirstName,
			LastName:          p.LastName,
			Email:             p.Email,
			GoogleAccessToken: &at,
		}, ExternalPolicy)
		if err != nil {
			return Session{}, err
		}
	case err != nil:
		return Session{}, err
	default:
		if u, err = s.users.SetExternalToken(ctx, u.ID, p.AccessToken); err != nil {
			return Session{}, err
		}
	}
	return s.newSession(u)
}

// CurrentUser resolves an access token to its user.  The token must name
// both the email and the id of the account; a token minted for a deleted
// account does not carry over to a new one with the same email.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (model.User, error) {
	if accessToken == "" {
		return model.User{}, apperror.Unauthenticated()
	}
	claims, err := s.tokens.Verify(ctx, token.AudienceAccess, accessToken)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.FindByEmail(ctx, claims.Subject)
	if apperror.KindOf(err) == apperror.KindNotFound {
		return model.User{}, apperror.Unauthenticated()
	}
	if err != nil {
		return model.User{}, err
	}
	if claims.UserID != u.ID {
		return model.User{}, apperror.Unauthenticated()
	}
	return u, nil
}

// RequestPasswordRecovery mails a password-reset link.  An unknown email
// is reported as NOT_FOUND.
func (s *AuthService) RequestPasswordRecovery(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if apperror.KindOf(err) == apperror.KindNotFound {
		return apperror.NotFound("User doesn't exist")
	}
	if err != nil {
		return err
	}
	tok, exp, err := s.tokens.Issue(token.AudiencePasswordRecovery, u.Email, u.ID, 0)
	if err != nil {
		return err
	}
	if _, err := s.tokens.Persist(ctx, token.AudiencePasswordRecovery, u.ID, tok, exp); err != nil {
		return err
	}
	s.notify.PasswordReset(ctx, u.Email, tok)
	return nil
}

// ResetPassword sets a new password from a password-reset token.  The
// token is burned before a mismatched or too-short password is rejected,
// and before the password changes, so a token can never be replayed.
func (s *AuthService) ResetPassword(ctx context.Context, tok, newPassword, confirm string) error {
	claims, err := s.tokens.Verify(ctx, token.AudiencePasswordRecovery, tok)
	if err != nil {
		return err
	}
	u, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if err := s.tokens.Consume(ctx, token.AudiencePasswordRecovery, tok); err != nil {
		return err
	}
	if newPassword != confirm {
		return apperror.Validation("Passwords don't match.")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	_, err = s.users.Update(ctx, u.ID, model.UserUpdate{Password: &newPassword})
	return err
}
