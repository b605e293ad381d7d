package utils

import "golang.org/x/crypto/bcrypt"

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct{ Cost int }

func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{Cost: cost}
}

// Hash returns a salted bcrypt hash of plain.
func (h Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares bcrypt hash and plain password.
func (h Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
