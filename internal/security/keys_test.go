package security

import (
	"crypto/rsa"
	"testing"
)

func TestParsePrivateKey_InlinePEM(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if _, ok := signer.Public().(*rsa.PublicKey); !ok {
		t.Errorf("expected RSA public key, got %T", signer.Public())
	}
}

func TestParsePublicKey_InlinePEM(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if _, ok := pub.(*rsa.PublicKey); !ok {
		t.Errorf("expected *rsa.PublicKey, got %T", pub)
	}
}

func TestParsePrivateKey_Invalid(t *testing.T) {
	cases := []string{"", "   ", "not pem at all", "-----BEGIN JUNK-----\nabc\n-----END JUNK-----"}
	for _, s := range cases {
		if _, err := ParsePrivateKey(s); err == nil {
			t.Errorf("ParsePrivateKey(%q) should fail", s)
		}
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	if _, err := ParsePublicKey(testPrivateKeyPEM); err == nil {
		t.Error("ParsePublicKey with a private key PEM should fail")
	}
	if _, err := ParsePublicKey(""); err == nil {
		t.Error("ParsePublicKey with empty input should fail")
	}
}

func TestLoadPEM_MissingFile(t *testing.T) {
	if _, err := LoadPEM("/nonexistent/path/key.pem"); err == nil {
		t.Error("LoadPEM with a missing file path should fail")
	}
}
