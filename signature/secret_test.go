package signature_test

import (
	"strings"
	"testing"

	"github.com/hooklinehq/hookline/signature"
)

func TestGenerateSecretFormat(t *testing.T) {
	secret := signature.GenerateSecret()

	if !strings.HasPrefix(secret, "whsec_") {
		t.Errorf("expected prefix 'whsec_', got %q", secret)
	}

	// whsec_ (6) + 64 hex chars (32 bytes) = 70 total
	if len(secret) != 70 {
		t.Errorf("expected length 70, got %d for %q", len(secret), secret)
	}
}

func TestGenerateSecretUniqueness(t *testing.T) {
	a := signature.GenerateSecret()
	b := signature.GenerateSecret()
	if a == b {
		t.Errorf("two consecutive GenerateSecret() calls returned the same value: %q", a)
	}
}

func TestDecodeSecret(t *testing.T) {
	secret := signature.GenerateSecret()

	raw, ok := signature.DecodeSecret(secret)
	if !ok {
		t.Fatalf("DecodeSecret rejected a generated secret %q", secret)
	}
	if len(raw) != signature.SecretBytes {
		t.Errorf("expected %d raw bytes, got %d", signature.SecretBytes, len(raw))
	}

	if _, ok := signature.DecodeSecret("not-a-secret"); ok {
		t.Error("DecodeSecret accepted a value without the whsec_ prefix")
	}
	if _, ok := signature.DecodeSecret("whsec_zzzz"); ok {
		t.Error("DecodeSecret accepted non-hex content")
	}
}
