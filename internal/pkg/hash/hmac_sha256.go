package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprinter maps a secret to a stable, non-reversible identifier.
type Fingerprinter interface {
	Fingerprint(secret string) string
}

// HMACSHA256 fingerprints with HMAC-SHA256 under a server-side key.
type HMACSHA256 struct {
	key []byte
}

// NewHMACSHA256 creates a fingerprinter keyed with key.
func NewHMACSHA256(key string) *HMACSHA256 {
	return &HMACSHA256{key: []byte(key)}
}

// Fingerprint returns the lowercase hex HMAC of secret.
func (s *HMACSHA256) Fingerprint(secret string) string {
	return hex.EncodeToString(s.sum(secret))
}

// Match reports whether fingerprint was produced from secret. A consumer of
// seed.provisioned holding the same key uses it to confirm which seed was
// provisioned without the secret ever travelling on the bus.
func (s *HMACSHA256) Match(fingerprint, secret string) bool {
	raw, err := hex.DecodeString(fingerprint)
	if err != nil {
		return false
	}
	return hmac.Equal(raw, s.sum(secret))
}

func (s *HMACSHA256) sum(secret string) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(secret))
	return h.Sum(nil)
}
