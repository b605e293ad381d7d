package model

import "time"

// Role is the authorization level of a user account.
type Role string

const (
	RoleRegular Role = "REGULAR"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleRegular || r == RoleAdmin }

// MeetingCooldown is the minimum time between two meetings scheduled by the
// same user.
const MeetingCooldown = 7 * 24 * time.Hour

// User represents an application user record as stored in the `users`
// table.  Optional columns are pointers so that NULL survives a round trip.
//
// Fields:
//
//	ID                   - primary key identifier of the user.
//	Email                - unique, case-sensitive login identifier.
//	PhoneNumber/Document - unique when present.
//	PasswordHash         - bcrypt hash; nil for accounts created through Google.
//	LastMeetingScheduled - when the user last scheduled a meeting (nil = never).
//	IsActive             - flips to true once the email is confirmed.
//	GoogleAccessToken    - opaque provider token kept for later reuse.
type User struct {
	ID                   uint64
	FirstName            string
	SecondName           *string
	LastName             string
	Email                string
	PhoneNumber          *string
	Document             *string
	PasswordHash         *string
	CreatedAt            time.Time
	LastMeetingScheduled *time.Time
	IsActive             bool
	Role                 Role
	GoogleAccessToken    *string
}

// CanScheduleMeeting reports whether at least MeetingCooldown has elapsed
// since the last scheduled meeting, or the user never scheduled one.
func (u User) CanScheduleMeeting(now time.Time) bool {
	if u.LastMeetingScheduled == nil {
		return true
	}
	return now.Sub(*u.LastMeetingScheduled) >= MeetingCooldown
}

// IsAdmin reports whether the user carries the ADMIN role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserUpdate is a sparse update of a user row.  Only non-nil fields are
// applied.  Password carries a plaintext value that the service hashes
// before it reaches the repository as PasswordHash.  An empty SecondName,
// PhoneNumber or Document sets the column to NULL.
type UserUpdate struct {
	FirstName            *string
	SecondName           *string
	LastName             *string
	Email                *string
	PhoneNumber          *string
	Document             *string
	Password             *string
	PasswordHash         *string
	LastMeetingScheduled *time.Time
	IsActive             *bool
	Role                 *Role
	GoogleAccessToken    *string
}

// Empty reports whether the update carries no column change.
func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.SecondName == nil && u.LastName == nil && u.Email == nil &&
		u.PhoneNumber == nil && u.Document == nil && u.PasswordHash == nil &&
		u.LastMeetingScheduled == nil && u.IsActive == nil && u.Role == nil && u.GoogleAccessToken == nil
}
