package seed

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// KeyBits is the required RSA modulus size.
const KeyBits = 4096

// LoadPrivateKey parses an unencrypted PEM encoded PKCS8 private key and
// checks that it is a 4096-bit RSA key.
func LoadPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrKey
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, ErrKey
	}

	return checkKey(parsed)
}

// LoadPrivateKeyFile reads path and delegates to LoadPrivateKey.
func LoadPrivateKeyFile(path string) (*rsa.PrivateKey, error) {
	// #nosec G304 -- path comes from trusted configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrKey, path, err)
	}

	return LoadPrivateKey(data)
}

func checkKey(key crypto.PrivateKey) (*rsa.PrivateKey, error) {
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok || rsaKey == nil || rsaKey.N == nil {
		return nil, ErrKey
	}
	if rsaKey.N.BitLen() != KeyBits {
		return nil, ErrKey
	}

	return rsaKey, nil
}
