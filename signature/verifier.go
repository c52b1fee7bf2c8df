package signature

import "crypto/hmac"

// Verify checks whether the provided signature matches the expected
// HMAC-SHA256 digest of body under secret. The comparison is constant-time.
// Accepts either the bare hex digest or the full header value.
func (s *Signer) Verify(secret string, body []byte, provided string) bool {
	return Verify(secret, body, provided)
}

// Verify checks whether the provided signature matches the expected
// HMAC-SHA256 digest of body under secret using a constant-time comparison.
func Verify(secret string, body []byte, provided string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(stripScheme(provided)))
}
