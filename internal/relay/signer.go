package relay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Signer produces a hex-encoded HMAC-SHA256 over outgoing payload bytes so
// the automation engine can authenticate the relay as the origin. Signing is
// deterministic: the same bytes always yield the same token, which keeps
// retried envelopes byte-identical.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer. A missing secret is a startup-time
// configuration error, never a per-request one.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the signature token for a payload.
func (s *Signer) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
