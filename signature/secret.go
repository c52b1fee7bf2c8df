package signature

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// SecretBytes is the entropy of a signing secret in raw bytes.
const SecretBytes = 32

// SecretPrefix distinguishes webhook signing secrets from other credentials
// at a glance in logs-adjacent tooling (the secret itself is never logged).
const SecretPrefix = "whsec_"

// GenerateSecret creates a cryptographically random signing secret.
// Format: "whsec_" + 32 bytes hex = 70 characters total.
func GenerateSecret() string {
	b := make([]byte, SecretBytes)
	if _, err := rand.Read(b); err != nil {
		panic("hookline: failed to generate random secret: " + err.Error())
	}
	return SecretPrefix + hex.EncodeToString(b)
}

// DecodeSecret returns the raw secret bytes behind a generated secret.
// Returns false if the value is not a hookline-generated secret.
func DecodeSecret(secret string) ([]byte, bool) {
	s, ok := strings.CutPrefix(secret, SecretPrefix)
	if !ok {
		return nil, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != SecretBytes {
		return nil, false
	}
	return raw, true
}
