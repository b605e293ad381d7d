// Package repository holds the MySQL data access layer.  Sentinel errors
// declared here let the service layer tell "missing row" and "unique key
// collision" apart without inspecting driver errors itself.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update violates a unique key.
// Use DuplicateField to find out which column collided.
var ErrConflict = errors.New("conflict")

// DuplicateError wraps ErrConflict with the logical field that collided
// ("email", "phone_number", "document", ...).
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string { return "duplicate " + e.Field }
func (e *DuplicateError) Unwrap() error { return ErrConflict }

// DuplicateField returns the field name carried by a DuplicateError, or ""
// when err is not a duplicate-key error.
func DuplicateField(err error) string {
	var de *DuplicateError
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}

const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
)

// uniqueKeys maps unique index names from the migrations to field names.
var uniqueKeys = map[string]string{
	"uq_users_email":              "email",
	"uq_users_phone":              "phone_number",
	"uq_users_document":           "document",
	"uq_advisors_email":           "email",
	"uq_meetings_zoom_id":         "zoom_meeting_id",
	"uq_meetings_join_url":        "join_url",
	"uq_email_confirmation_token": "token",
	"uq_password_reset_token":     "token",
}

// translate converts driver errors into the package sentinels.  Errors it
// does not recognise pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return &DuplicateError{Field: duplicateKeyField(me.Message), Err: err}
		case mysqlNoReferenced:
			return ErrNotFound
		}
	}
	return err
}

// duplicateKeyField extracts the index name from a message such as
// "Duplicate entry 'a@b.c' for key 'users.uq_users_email'".
func duplicateKeyField(msg string) string {
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return ""
	}
	key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	if f, ok := uniqueKeys[key]; ok {
		return f
	}
	return key
}
