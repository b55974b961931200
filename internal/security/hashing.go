package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies secrets using bcrypt. It covers both user
// passwords and stored refresh tokens. Callers must not log or persist
// plaintext secrets.
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

// Hash produces a bcrypt digest of secret. Returns the digest as a string
// suitable for storage.
func (h *Hasher) Hash(secret []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether secret matches the stored digest. A malformed
// digest is treated as a non-match, never an error: verification fails
// closed. The bcrypt computation dominates cost, so timing does not depend
// on where a mismatch occurs.
func (h *Hasher) Verify(secret []byte, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), secret) == nil
}
