package repository

import (
	"context"

	"vendhub/backend/internal/user/domain"
)

// Repository is the read-only user lookup consumed by the session core.
type Repository interface {
	// GetByUsername returns the user for username, or nil if not found.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// GetByID returns the user for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
