package domain

import "time"

// Session represents one active or historical login. Rotation never mutates
// TokenHash in place: a refresh deactivates the old row and inserts a new
// one, giving an append-only history for audit.
type Session struct {
	ID          string
	UserID      string
	TokenHash   string     // bcrypt digest of the raw refresh token; never the raw value
	TokenHint   string     // 16-char lookup key; empty for sessions created before hints existed
	IsActive    bool       // false once revoked or rotated away
	DeviceLabel string     // informational only
	CreatedAt   time.Time
	LastUsedAt  *time.Time // nil until first refresh
	ExpiresAt   time.Time
}

// Expired reports whether the session's expiry lies at or before now.
// Expired rows are treated as inactive even when IsActive has not been swept.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
