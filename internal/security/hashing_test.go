package security

import (
	"testing"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(4)
	secret := []byte("secret123")
	digest, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "" {
		t.Fatal("Hash returned empty")
	}
	if !h.Verify(secret, digest) {
		t.Fatal("Verify should match the hashed secret")
	}
}

func TestHasher_VerifyWrongSecret(t *testing.T) {
	h := NewHasher(4)
	digest, _ := h.Hash([]byte("secret123"))
	if h.Verify([]byte("wrong"), digest) {
		t.Fatal("Verify with wrong secret should fail")
	}
}

func TestHasher_VerifyMalformedDigest(t *testing.T) {
	h := NewHasher(4)
	for _, digest := range []string{"", "not-a-bcrypt-digest", "$2a$garbage"} {
		if h.Verify([]byte("secret123"), digest) {
			t.Errorf("Verify with malformed digest %q should fail closed", digest)
		}
	}
}

func TestHasher_SaltedDigestsDiffer(t *testing.T) {
	h := NewHasher(4)
	d1, _ := h.Hash([]byte("same-secret"))
	d2, _ := h.Hash([]byte("same-secret"))
	if d1 == d2 {
		t.Error("two digests of the same secret should differ (per-hash salt)")
	}
	if !h.Verify([]byte("same-secret"), d1) || !h.Verify([]byte("same-secret"), d2) {
		t.Error("both salted digests should verify")
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
	h99 := NewHasher(99)
	if h99.Cost > 31 {
		t.Errorf("oversized cost should be clamped to MaxCost, got %d", h99.Cost)
	}
}
