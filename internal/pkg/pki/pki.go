// Package pki holds the RSA helpers used around seed provisioning: key pair
// generation, PEM encoding, and the commit proof (PSS signature wrapped in
// OAEP encryption).
package pki

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultBits is the modulus size for generated keys.
	DefaultBits = 4096

	pemPrivateKey = "PRIVATE KEY"
	pemPublicKey  = "PUBLIC KEY"
)

var (
	// ErrInvalidPEM indicates the input holds no PEM block of the expected type.
	ErrInvalidPEM = errors.New("pki: invalid pem")
	// ErrNotRSA indicates a parsed key is not an RSA key.
	ErrNotRSA = errors.New("pki: key is not rsa")
)

// GenerateKey creates an RSA key with public exponent 65537.
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	if bits == 0 {
		bits = DefaultBits
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("pki: generate key: %w", err)
	}

	return key, nil
}

// EncodePrivateKey returns the unencrypted PKCS8 PEM of key.
func EncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("pki: marshal private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

// EncodePublicKey returns the SubjectPublicKeyInfo PEM of key.
func EncodePublicKey(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("pki: marshal public key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
}

// ParsePublicKey parses a SubjectPublicKeyInfo PEM holding an RSA key.
func ParsePublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != pemPublicKey {
		return nil, ErrInvalidPEM
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("pki: parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}

	return rsaPub, nil
}

// ReadPublicKey reads and parses a public key PEM file.
func ReadPublicKey(path string) (*rsa.PublicKey, error) {
	// #nosec G304 -- path is operator supplied.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pki: read %s: %w", path, err)
	}

	return ParsePublicKey(data)
}

// ParsePrivateKey parses an unencrypted PKCS8 PEM holding an RSA key. Unlike
// seed.LoadPrivateKey it accepts any modulus size.
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != pemPrivateKey {
		return nil, ErrInvalidPEM
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("pki: parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSA
	}

	return rsaKey, nil
}

// ReadPrivateKey reads and parses a private key PEM file.
func ReadPrivateKey(path string) (*rsa.PrivateKey, error) {
	// #nosec G304 -- path is operator supplied.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pki: read %s: %w", path, err)
	}

	return ParsePrivateKey(data)
}

// WriteKeyPair writes the private key PEM (0600) and public key PEM (0644).
func WriteKeyPair(key *rsa.PrivateKey, privPath, pubPath string) error {
	privPEM, err := EncodePrivateKey(key)
	if err != nil {
		return err
	}
	pubPEM, err := EncodePublicKey(&key.PublicKey)
	if err != nil {
		return err
	}

	if err := writeFile(privPath, privPEM, 0o600); err != nil {
		return err
	}

	return writeFile(pubPath, pubPEM, 0o644)
}

// SignPSS signs message with RSASSA-PSS, SHA-256 for the digest and MGF1,
// and the maximum salt length.
func SignPSS(key *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)

	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("pki: sign: %w", err)
	}

	return sig, nil
}

// VerifyPSS checks a signature produced by SignPSS.
func VerifyPSS(pub *rsa.PublicKey, message, sig []byte) error {
	digest := sha256.Sum256(message)

	return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
}

// EncryptOAEP encrypts data with RSA-OAEP, SHA-256 for OAEP and MGF1, no
// label.
func EncryptOAEP(pub *rsa.PublicKey, data []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, data, nil)
	if err != nil {
		return nil, fmt.Errorf("pki: encrypt: %w", err)
	}

	return ct, nil
}

// CommitProof signs the ASCII commit hash with the sender key and encrypts
// the signature to the recipient key. The signature must fit in one OAEP
// block: a sender modulus no larger than the recipient's minus 66 bytes,
// otherwise rsa.ErrMessageTooLong is returned.
func CommitProof(sender *rsa.PrivateKey, recipient *rsa.PublicKey, commitHash string) ([]byte, error) {
	sig, err := SignPSS(sender, []byte(commitHash))
	if err != nil {
		return nil, err
	}

	return EncryptOAEP(recipient, sig)
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("pki: mkdir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("pki: write %s: %w", path, err)
	}

	return nil
}
