package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// HintLength is the number of hex characters kept from the token digest.
const HintLength = 16

// TokenHint derives a short, non-secret lookup key from a raw refresh token:
// the first 16 hex characters of its SHA-256 digest. The hint is stored and
// indexed in the clear so sessions can be found without scanning every row;
// collisions across unrelated tokens are expected and harmless because every
// candidate is still verified with the slow hash.
func TokenHint(rawToken string) string {
	h := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(h[:])[:HintLength]
}
