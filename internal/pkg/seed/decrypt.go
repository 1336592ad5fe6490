package seed

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// Decryptor recovers canonical secrets with a fixed private key.
type Decryptor struct {
	key *rsa.PrivateKey
}

// NewDecryptor returns a Decryptor bound to key. It fails with ErrKey when the
// key is not a 4096-bit RSA private key.
func NewDecryptor(key crypto.PrivateKey) (*Decryptor, error) {
	rsaKey, err := checkKey(key)
	if err != nil {
		return nil, err
	}

	return &Decryptor{key: rsaKey}, nil
}

// Decrypt returns the canonical secret carried by blob, or one of
// ErrEncoding, ErrDecryption, ErrFormat. No partial result is returned.
func (d *Decryptor) Decrypt(blob string) (string, error) {
	if d == nil || d.key == nil {
		return "", ErrKey
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return "", ErrEncoding
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, d.key, ciphertext, nil)
	if err != nil {
		return "", ErrDecryption
	}

	if !utf8.Valid(plaintext) {
		return "", ErrEncoding
	}

	secret := strings.TrimSpace(string(plaintext))
	if err := Validate(secret); err != nil {
		return "", err
	}

	return secret, nil
}

// Decrypt is a one-shot helper for NewDecryptor(key).Decrypt(blob).
func Decrypt(blob string, key crypto.PrivateKey) (string, error) {
	d, err := NewDecryptor(key)
	if err != nil {
		return "", err
	}

	return d.Decrypt(blob)
}
