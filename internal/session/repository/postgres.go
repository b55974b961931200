package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vendhub/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, token_hash, token_hint, is_active, device_label, created_at, last_used_at, expires_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.TokenHash,
		sql.NullString{String: s.TokenHint, Valid: s.TokenHint != ""},
		s.IsActive,
		sql.NullString{String: s.DeviceLabel, Valid: s.DeviceLabel != ""},
		s.CreatedAt, timeToNullTime(s.LastUsedAt), s.ExpiresAt,
	)
	return err
}

// FindActiveByHint returns active, non-expired sessions with the given hint.
// Served by the partial index on (token_hint) WHERE is_active.
func (r *PostgresRepository) FindActiveByHint(ctx context.Context, hint string, now time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE token_hint = $1 AND is_active AND expires_at > $2`,
		hint, now)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// FindActiveLegacy returns active, non-expired sessions with a NULL hint.
func (r *PostgresRepository) FindActiveLegacy(ctx context.Context, now time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE token_hint IS NULL AND is_active AND expires_at > $1`,
		now)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// FindRotatedByHint returns inactive sessions with the given hint.
func (r *PostgresRepository) FindRotatedByHint(ctx context.Context, hint string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE token_hint = $1 AND NOT is_active`,
		hint)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// Deactivate flips is_active via compare-and-set. Reports whether this call
// changed the row; 0 rows affected means it was already inactive (or absent).
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = false WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeactivateAllForUser deactivates every session for the given user.
func (r *PostgresRepository) DeactivateAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = false WHERE user_id = $1 AND is_active`, userID)
	return err
}

// DeactivateExpired sweeps expired rows still flagged active.
func (r *PostgresRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = false WHERE is_active AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Touch sets the session's last-used timestamp for the given id.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s           domain.Session
		hint, label sql.NullString
		lastUsed    sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &hint, &s.IsActive,
		&label, &s.CreatedAt, &lastUsed, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	s.TokenHint = hint.String
	s.DeviceLabel = label.String
	s.LastUsedAt = nullTimeToPtr(lastUsed)
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]*domain.Session, error) {
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
