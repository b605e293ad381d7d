// Package apperror defines the domain error taxonomy.  Every failure that
// reaches a caller carries a stable machine-readable Kind plus a human
// message; handlers translate the Kind into an HTTP status.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable category of a domain error.
type Kind string

const (
	KindTokenExpired       Kind = "TOKEN_EXPIRED"
	KindTokenInvalid       Kind = "TOKEN_INVALID"
	KindRateLimitExceeded  Kind = "RATE_LIMIT_EXCEEDED"
	KindCredentialsInvalid Kind = "CREDENTIALS_INVALID"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindInactiveUser       Kind = "INACTIVE_USER"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindCooldownActive     Kind = "COOLDOWN_ACTIVE"
	KindNoAdvisor          Kind = "NO_ADVISOR_AVAILABLE"
	KindExternalProvider   Kind = "EXTERNAL_PROVIDER"
	KindValidation         Kind = "VALIDATION"
	KindInternal           Kind = "INTERNAL"
)

// Provider operations reported in EXTERNAL_PROVIDER errors.
const (
	OpCreateMeeting = "CreateMeetingError"
	OpPatchMeeting  = "PatchMeetingError"
	OpDeleteMeeting = "DeleteMeetingError"
)

// Error is the concrete domain error.
type Error struct {
	Kind    Kind
	Message string
	// Op names the failing provider operation for EXTERNAL_PROVIDER errors.
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind: errors.Is(err, apperror.New(KindNotFound, ""))
// is true for any NOT_FOUND error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindInternal when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the domain error, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func TokenExpired() *Error { return New(KindTokenExpired, "Token has expired") }

// TokenInvalid covers bad signatures, wrong audiences and malformed tokens.
func TokenInvalid() *Error { return New(KindTokenInvalid, "Could not validate credentials") }

// TokenUsed is reported when the shadow record says the token was already consumed.
func TokenUsed() *Error { return New(KindTokenInvalid, "Invalid token") }

func RateLimited(message string) *Error { return New(KindRateLimitExceeded, message) }

func CredentialsInvalid() *Error {
	return New(KindCredentialsInvalid, "Incorrect email or password")
}

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

func Validation(message string) *Error { return New(KindValidation, message) }

func Forbidden() *Error { return New(KindForbidden, "Operation not permitted") }

func Inactive() *Error { return New(KindInactiveUser, "Inactive user") }

func Unauthenticated() *Error { return New(KindUnauthenticated, "Could not validate credentials") }

func CooldownActive() *Error {
	return New(KindCooldownActive, "It has not been 7 days since you last scheduled a meeting")
}

func NoAdvisor() *Error { return New(KindNoAdvisor, "No advisors available") }

// Provider reports a failed call to the video-conferencing provider.
func Provider(op string, err error) *Error {
	return &Error{Kind: KindExternalProvider, Op: op, Message: fmt.Sprintf("%s: meeting provider request failed", op), Err: err}
}

// Internal wraps an unexpected failure; the message never leaks err.
func Internal(message string, err error) *Error { return Wrap(KindInternal, message, err) }
