package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Status maps a domain error to its HTTP status.
func Status(e *apperror.Error) int {
	switch e.Kind {
	case apperror.KindTokenInvalid:
		// a consumed confirmation or reset token is a bad request, not an auth failure
		if e.Message == apperror.TokenUsed().Message {
			return http.StatusBadRequest
		}
		return http.StatusUnauthorized
	case apperror.KindTokenExpired, apperror.KindCredentialsInvalid, apperror.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperror.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound, apperror.KindNoAdvisor:
		return http.StatusNotFound
	case apperror.KindInactiveUser, apperror.KindConflict, apperror.KindCooldownActive, apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindExternalProvider:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func httpErrorCode(status int) apperror.Kind {
	switch {
	case status == http.StatusNotFound:
		return apperror.KindNotFound
	case status == http.StatusUnauthorized:
		return apperror.KindUnauthenticated
	case status == http.StatusForbidden:
		return apperror.KindForbidden
	case status == http.StatusTooManyRequests:
		return apperror.KindRateLimitExceeded
	case status < http.StatusInternalServerError:
		return apperror.KindValidation
	}
	return apperror.KindInternal
}

// ErrorHandler renders errors returned by handlers and middleware.
// Internal failures are logged with their cause and reported without it.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := http.StatusInternalServerError, errorBody{Error: "Internal server error", Code: string(apperror.KindInternal)}

		var he *echo.HTTPError
		if e, ok := apperror.As(err); ok && e.Kind != apperror.KindInternal {
			status, body = Status(e), errorBody{Error: e.Message, Code: string(e.Kind)}
		} else if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			status, body = he.Code, errorBody{Error: msg, Code: string(httpErrorCode(he.Code))}
		}

		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
		}
		if status == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("could not write error response")
		}
	}
}
