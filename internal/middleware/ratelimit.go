package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/ratelimit"
)

// Rule is one fixed-window limit.
type Rule struct {
	Max     int
	Window  time.Duration
	Message string
}

// RateLimit counts attempts per client_ip:identity and rejects the request
// with 429 once rule.Max is reached inside the window.  A nil limiter
// disables the check.  Store failures follow the limiter's policy.
func RateLimit(l *ratelimit.Limiter, rule Rule, identity IdentityFunc) echo.MiddlewareFunc {
	if l == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ratelimit.Identifier(c.RealIP(), identity(c))
			// store errors are logged by the limiter; the verdict already reflects the policy
			exceeded, _ := l.Exceeded(c.Request().Context(), id, rule.Max, rule.Window)
			if exceeded {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(rule.Window/time.Second)))
				return apperror.RateLimited(rule.Message)
			}
			return next(c)
		}
	}
}
