package mfa

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vendhub/backend/internal/mfa/repository"
	"vendhub/backend/internal/vault"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type memRepo struct {
	mu sync.Mutex
	m  map[string]*repository.Record
}

func (r *memRepo) Upsert(ctx context.Context, rec *repository.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec2 := *rec
	r.m[rec.UserID] = &rec2
	return nil
}

func (r *memRepo) Get(ctx context.Context, userID string) (*repository.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[userID], nil
}

func (r *memRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, userID)
	return nil
}

func newStore(t *testing.T) (*SecretStore, *memRepo) {
	t.Helper()
	v, err := vault.New(testKeyHex)
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	repo := &memRepo{m: map[string]*repository.Record{}}
	return NewSecretStore(repo, v, func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}), repo
}

func TestSecretStore_SaveAndGet(t *testing.T) {
	store, repo := newStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "user-1", "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec := repo.m["user-1"]; rec.Ciphertext == "JBSWY3DPEHPK3PXP" {
		t.Fatal("secret must not be stored in plaintext")
	}
	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "JBSWY3DPEHPK3PXP" {
		t.Errorf("Get = %q, want original secret", got)
	}
}

func TestSecretStore_NotEnrolled(t *testing.T) {
	store, _ := newStore(t)
	if _, err := store.Get(context.Background(), "stranger"); !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("Get error = %v, want ErrNotEnrolled", err)
	}
}

func TestSecretStore_TamperedCiphertextIsFatal(t *testing.T) {
	store, repo := newStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "user-1", "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	repo.m["user-1"].Ciphertext = "corrupted" + repo.m["user-1"].Ciphertext
	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, vault.ErrDecryptionFailed) {
		t.Errorf("Get error = %v, want ErrDecryptionFailed", err)
	}
}

func TestSecretStore_Remove(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "user-1", "seed"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Remove(ctx, "user-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("Get after Remove error = %v, want ErrNotEnrolled", err)
	}
	if err := store.Remove(ctx, "user-1"); err != nil {
		t.Errorf("Remove should be idempotent: %v", err)
	}
}
