package domain

import "time"

// User is the credential read model owned by the surrounding application.
// The session core only reads it: username lookup during login, plus the
// stored credential digest for verification.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}
