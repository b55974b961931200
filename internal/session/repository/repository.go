package repository

import (
	"context"
	"time"

	"vendhub/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Rows are never physically
// deleted here; retention is an external policy.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Create inserts a new session row. All-or-nothing: a cancelled or failed
	// insert must not leave a partial active row.
	Create(ctx context.Context, s *domain.Session) error
	// FindActiveByHint returns active, non-expired sessions whose token_hint
	// equals hint. Hints are a non-unique index; multiple rows may match.
	FindActiveByHint(ctx context.Context, hint string, now time.Time) ([]*domain.Session, error)
	// FindActiveLegacy returns active, non-expired sessions with no hint,
	// created before the hint mechanism existed. Fallback candidates only.
	FindActiveLegacy(ctx context.Context, now time.Time) ([]*domain.Session, error)
	// FindRotatedByHint returns inactive sessions whose token_hint equals
	// hint. Used by the optional reuse-detection path.
	FindRotatedByHint(ctx context.Context, hint string) ([]*domain.Session, error)
	// Deactivate flips is_active to false only if currently active and
	// reports whether this call flipped the row (compare-and-set). Already
	// inactive is a no-op, not an error.
	Deactivate(ctx context.Context, id string) (bool, error)
	// DeactivateAllForUser deactivates every session owned by userID.
	DeactivateAllForUser(ctx context.Context, userID string) error
	// DeactivateExpired sweeps rows whose expiry has passed and returns the
	// number of rows flipped. Lookup paths already exclude expired rows; the
	// sweep only keeps the flag honest.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	// Touch updates last_used_at.
	Touch(ctx context.Context, id string, at time.Time) error
}
