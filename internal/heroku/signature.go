package heroku

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the request body.
const SignatureHeader = "Heroku-Webhook-Hmac-SHA256"

var (
	// ErrMissingSignature means the request carried no signature at all.
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrInvalidSignature means the signature doesn't match the body.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Secret is the shared secret Heroku signs webhooks with.
type Secret string

func (s Secret) String() string { return "[REDACTED]" }

// LogValue keeps the secret out of structured logs.
func (s Secret) LogValue() slog.Value { return slog.StringValue("[REDACTED]") }

// Sign returns the signature Heroku would send for body.
func Sign(secret Secret, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is valid for body.
func Verify(secret Secret, body []byte, signature string) bool {
	return CheckSignature(secret, body, signature) == nil
}

// CheckSignature verifies signature against the raw, unmodified body. The
// comparison is constant-time.
func CheckSignature(secret Secret, body []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	expected := Sign(secret, body)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrInvalidSignature
	}

	return nil
}
