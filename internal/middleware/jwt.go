package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
)

// AccessCookie is the cookie carrying the access token.
const AccessCookie = "access_token"

const userKey = "user"

// UserResolver turns an access token into its user.  It is satisfied by
// *service.AuthService.
type UserResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (model.User, error)
}

// accessToken reads the access_token cookie, then the Authorization header.
func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// Authenticate resolves the caller and stores it in the context.  Expired
// tokens fail with "Token has expired", anything else that does not
// verify with "Could not validate credentials".
func Authenticate(users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := users.CurrentUser(c.Request().Context(), accessToken(c))
			if err != nil {
				if apperror.KindOf(err) == apperror.KindTokenInvalid {
					return apperror.Unauthenticated()
				}
				return err
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}
