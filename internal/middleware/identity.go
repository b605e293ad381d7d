package middleware

// identity.go holds the extractors naming who a rate-limited request is
// for.  The counter key combines the client IP with this identity.

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// IdentityFunc names the subject of a request.
type IdentityFunc func(c echo.Context) string

// FormField identifies requests by a form value, e.g. the login username.
func FormField(name string) IdentityFunc {
	return func(c echo.Context) string { return strings.TrimSpace(c.FormValue(name)) }
}

// PathParam identifies requests by a route parameter, e.g. the recovery email.
func PathParam(name string) IdentityFunc {
	return func(c echo.Context) string { return c.Param(name) }
}
