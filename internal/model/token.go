package model

import "time"

// TokenRecord is the database shadow of a signed single-use token, stored
// in either `email_confirmation_tokens` or `password_reset_tokens`.  IsUsed
// is authoritative over the expiry claim inside the token itself.  Only
// the SHA-256 digest of the token is kept.
type TokenRecord struct {
	ID        uint64
	TokenHash string
	UserID    uint64
	IsUsed    bool
	ExpiresAt time.Time
}
