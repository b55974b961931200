package repository

import (
	"context"
	"time"
)

// Record is one user's stored two-factor secret, ciphertext only.
type Record struct {
	UserID     string
	Ciphertext string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Repository defines persistence for encrypted two-factor secrets.
// Plaintext secrets never reach this layer.
type Repository interface {
	// Upsert stores or replaces the user's encrypted secret.
	Upsert(ctx context.Context, rec *Record) error
	// Get returns the user's record, or nil if none is stored.
	Get(ctx context.Context, userID string) (*Record, error)
	// Delete removes the user's record; unknown users are a no-op.
	Delete(ctx context.Context, userID string) error
}
