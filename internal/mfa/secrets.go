// Package mfa stores per-user two-factor secrets at rest, encrypted with
// the process-wide vault key.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vendhub/backend/internal/mfa/repository"
	"vendhub/backend/internal/vault"
)

// ErrNotEnrolled is returned by Get when the user has no stored secret.
var ErrNotEnrolled = errors.New("mfa: user not enrolled")

// SecretStore encrypts two-factor secrets before persistence and decrypts
// them on read. A decryption failure means the stored ciphertext was
// tampered with or encrypted under a different key; it is fatal for that
// record and propagates as vault.ErrDecryptionFailed.
type SecretStore struct {
	repo  repository.Repository
	vault *vault.Vault
	now   func() time.Time
}

// NewSecretStore returns a SecretStore. now may be nil, in which case
// time.Now is used.
func NewSecretStore(repo repository.Repository, v *vault.Vault, now func() time.Time) *SecretStore {
	if now == nil {
		now = time.Now
	}
	return &SecretStore{repo: repo, vault: v, now: now}
}

// Save encrypts and stores the user's two-factor secret, replacing any
// previous one.
func (s *SecretStore) Save(ctx context.Context, userID, secret string) error {
	ciphertext, err := s.vault.Encrypt(secret)
	if err != nil {
		return fmt.Errorf("mfa: encrypt secret: %w", err)
	}
	now := s.now().UTC()
	return s.repo.Upsert(ctx, &repository.Record{
		UserID:     userID,
		Ciphertext: ciphertext,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// Get returns the user's decrypted two-factor secret. Returns ErrNotEnrolled
// when nothing is stored and vault.ErrDecryptionFailed when the stored
// ciphertext fails authentication.
func (s *SecretStore) Get(ctx context.Context, userID string) (string, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrNotEnrolled
	}
	secret, err := s.vault.Decrypt(rec.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("mfa: secret for user %s: %w", userID, err)
	}
	return secret, nil
}

// Remove deletes the user's stored secret. Unknown users are a no-op.
func (s *SecretStore) Remove(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}
