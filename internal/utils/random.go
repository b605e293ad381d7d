package utils // package utils provides hashing and random helpers

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // fixed-width digests of single-use tokens
	"encoding/hex"  // hex encoding of the random bytes
)

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.  It is used for the OAuth state
// parameter.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 of a raw token.  Token tables store
// only this digest, so the column width does not depend on the token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
