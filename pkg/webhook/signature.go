package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fitness-billing-be/pkg/billing"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "x-signature"

var (
	ErrMissingSignature  = fmt.Errorf("%w: signature is missing", billing.ErrAuthentication)
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", billing.ErrAuthentication)
	ErrInvalidPayload    = fmt.Errorf("%w: payload is not valid JSON", billing.ErrAuthentication)
	ErrNoSecret          = fmt.Errorf("%w: webhook secret is not configured", billing.ErrAuthentication)
)

// Verifier authenticates aggregator notifications with a shared secret.
type Verifier struct {
	secret        []byte
	allowUnsigned bool
}

// NewVerifier builds a verifier. allowUnsigned only has an effect when secret
// is empty, and must never be set in production (config.Validate enforces it).
func NewVerifier(secret string, allowUnsigned bool) *Verifier {
	return &Verifier{secret: []byte(secret), allowUnsigned: allowUnsigned}
}

// Skips reports whether requests are accepted without checking signatures.
func (v *Verifier) Skips() bool {
	return len(v.secret) == 0 && v.allowUnsigned
}

// Sign returns the hex signature for payload over its canonical form.
func (v *Verifier) Sign(payload []byte) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(v.mac(canonical)), nil
}

// Verify checks signature against payload. The expected value never leaves
// this function.
func (v *Verifier) Verify(payload []byte, signature string) error {
	if len(v.secret) == 0 {
		if v.allowUnsigned {
			return nil
		}
		return ErrNoSecret
	}

	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return ErrMissingSignature
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}

	canonical, err := Canonicalize(payload)
	if err != nil {
		return err
	}

	if !hmac.Equal(v.mac(canonical), provided) {
		return ErrSignatureMismatch
	}
	return nil
}

// Valid is the boolean form of Verify.
func (v *Verifier) Valid(payload []byte, signature string) bool {
	return v.Verify(payload, signature) == nil
}

func (v *Verifier) mac(data []byte) []byte {
	h := hmac.New(sha256.New, v.secret)
	h.Write(data)
	return h.Sum(nil)
}

// Canonicalize returns the compact JSON serialization of payload: whitespace
// between tokens is removed, key order and string contents are kept as sent.
func Canonicalize(payload []byte) ([]byte, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ErrInvalidPayload
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, ErrInvalidPayload
	}
	return buf.Bytes(), nil
}

// IsAuthError reports whether err came from signature verification.
func IsAuthError(err error) bool {
	return errors.Is(err, billing.ErrAuthentication)
}
