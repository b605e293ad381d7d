package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/iliyamo/advisor-scheduler/internal/google"
	"github.com/iliyamo/advisor-scheduler/internal/middleware"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/ratelimit"
	"github.com/iliyamo/advisor-scheduler/internal/service"
	"github.com/iliyamo/advisor-scheduler/internal/utils"
)

// Authenticator is the account side of the service layer.  It is
// satisfied by *service.AuthService.
type Authenticator interface {
	Register(ctx context.Context, in service.NewUser) (model.User, error)
	ConfirmAccount(ctx context.Context, tok string) (model.User, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	ExternalLogin(ctx context.Context, p service.ExternalProfile) (service.Session, error)
	RequestPasswordRecovery(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, tok, newPassword, confirm string) error
}

// ExternalIdentity is the "login with Google" flow.  It is satisfied by
// *google.Provider.
type ExternalIdentity interface {
	Enabled() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (google.Profile, *oauth2.Token, error)
}

// AttemptResetter clears a rate-limit counter.
type AttemptResetter interface {
	Reset(ctx context.Context, identifier string) error
}

var (
	_ Authenticator    = (*service.AuthService)(nil)
	_ ExternalIdentity = (*google.Provider)(nil)
	_ AttemptResetter  = (*ratelimit.Limiter)(nil)
)

const stateCookie = "oauth_state"

// CookieConfig controls the access_token cookie.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// AuthHandler bundles dependencies for the account endpoints.
type AuthHandler struct {
	Auth     Authenticator
	Google   ExternalIdentity
	Attempts AttemptResetter // nil when rate limiting is disabled
	Cookie   CookieConfig
	Log      zerolog.Logger
}

func NewAuthHandler(auth Authenticator, g ExternalIdentity, attempts AttemptResetter, cookie CookieConfig, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Google: g, Attempts: attempts, Cookie: cookie, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	FirstName   string  `json:"first_name" validate:"required"`
	SecondName  *string `json:"second_name"`
	LastName    string  `json:"lastname" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,min=1"`
	Document    *string `json:"document" validate:"omitempty,min=1"`
	Password    string  `json:"plain_password" validate:"required"`
}

type confirmReq struct {
	Token string `json:"token" validate:"required"`
}

func (h *AuthHandler) setAccessCookie(c echo.Context, tok string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(h.Cookie.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) session(c echo.Context, s service.Session) error {
	h.setAccessCookie(c, s.AccessToken)
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: s.AccessToken, TokenType: "Bearer", Email: s.User.Email})
}

// Register: create an inactive account and mail the confirmation link.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	pw := req.Password
	if _, err := h.Auth.Register(c.Request().Context(), service.NewUser{
		FirstName:   req.FirstName,
		SecondName:  req.SecondName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Document:    req.Document,
		Password:    &pw,
	}); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully, please check your email to confirm your account.",
	})
}

// ConfirmAccount: activate the account named by the token.
func (h *AuthHandler) ConfirmAccount(c echo.Context) error {
	var req confirmReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.Auth.ConfirmAccount(c.Request().Context(), req.Token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User account activated successfully"})
}

// Login: form-encoded username/password.  A successful login clears the
// caller's failed-attempt counter.
func (h *AuthHandler) Login(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if username == "" || password == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "username and password are required")
	}
	ctx := c.Request().Context()
	s, err := h.Auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if h.Attempts != nil {
		if err := h.Attempts.Reset(ctx, ratelimit.Identifier(c.RealIP(), username)); err != nil {
			h.Log.Warn().Err(err).Msg("could not reset login attempts")
		}
	}
	return h.session(c, s)
}

// Logout drops the access token cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	return c.JSON(http.StatusOK, toUser(u))
}

// GoogleLogin redirects to the consent screen with a fresh state value.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	if h.Google == nil || !h.Google.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Google login is not configured")
	}
	state, err := utils.RandomHex(16)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.Google.AuthCodeURL(state))
}

// GoogleCallback finishes the authorization-code flow and signs the user in.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if h.Google == nil || !h.Google.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Google login is not configured")
	}
	ck, err := c.Cookie(stateCookie)
	if err != nil || ck.Value == "" || ck.Value != c.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid OAuth state")
	}
	c.SetCookie(&http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	ctx := c.Request().Context()
	profile, tok, err := h.Google.Exchange(ctx, c.QueryParam("code"))
	if err != nil {
		h.Log.Warn().Err(err).Msg("google code exchange failed")
		return echo.NewHTTPError(http.StatusBadRequest, "Could not obtain the token")
	}
	s, err := h.Auth.ExternalLogin(ctx, service.ExternalProfile{
		Email:       profile.Email,
		FirstName:   profile.GivenName,
		LastName:    profile.FamilyName,
		AccessToken: tok.AccessToken,
	})
	if err != nil {
		return err
	}
	return h.session(c, s)
}
