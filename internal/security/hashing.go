package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies account passwords using bcrypt. Callers must not
// log or persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a salted bcrypt digest of password, suitable for storage.
// The digest is not reversible.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches the stored digest. A malformed or
// unrecognized digest counts as a mismatch, never a failure: the only outcomes
// are true and false.
func (h *Hasher) Verify(digest string, password []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), password) == nil
}
