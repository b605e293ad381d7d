package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
)

// RequireActive rejects users that have not confirmed their email.
func RequireActive() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return apperror.Unauthenticated()
			}
			if !u.IsActive {
				return apperror.Inactive()
			}
			return next(c)
		}
	}
}

// RequireRole enforces that the authenticated user has one of roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return apperror.Unauthenticated()
			}
			if !allowed[u.Role] {
				return apperror.Forbidden()
			}
			return next(c)
		}
	}
}
