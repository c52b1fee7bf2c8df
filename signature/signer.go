// Package signature provides HMAC-SHA256 webhook signing and verification.
//
// The signature is always computed over the exact bytes transmitted on the
// wire, never a re-serialized object: producers sign after final JSON
// encoding, and consumers must verify against the raw received body before
// parsing it.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Scheme is the signature scheme tag carried in the signature header.
const Scheme = "sha256"

// Signer computes HMAC-SHA256 signatures for webhook payloads.
type Signer struct{}

// NewSigner returns a new Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign generates the hex-encoded HMAC-SHA256 digest of body under secret.
func (s *Signer) Sign(secret string, body []byte) string {
	return Sign(secret, body)
}

// Sign generates the hex-encoded HMAC-SHA256 digest of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HeaderValue returns the signature formatted for the X-Webhook-Signature
// header: "sha256=<hex-hmac>".
func HeaderValue(secret string, body []byte) string {
	return Scheme + "=" + Sign(secret, body)
}

// stripScheme removes an optional "sha256=" prefix so that Verify accepts
// both the bare digest and the full header value.
func stripScheme(sig string) string {
	return strings.TrimPrefix(sig, Scheme+"=")
}
