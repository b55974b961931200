package repository

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an MFA secret repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert stores or replaces the user's encrypted secret.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mfa_secrets (user_id, ciphertext, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET ciphertext = $2, updated_at = $4`,
		rec.UserID, rec.Ciphertext, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// Get returns the user's record, or nil if none is stored.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*Record, error) {
	var rec Record
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, ciphertext, created_at, updated_at FROM mfa_secrets WHERE user_id = $1`,
		userID).Scan(&rec.UserID, &rec.Ciphertext, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Delete removes the user's record.
func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_secrets WHERE user_id = $1`, userID)
	return err
}
