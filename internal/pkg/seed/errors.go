package seed

import "errors"

var (
	// ErrEncoding indicates malformed base64 input or non UTF-8 plaintext.
	ErrEncoding = errors.New("seed: encoding error")
	// ErrDecryption indicates the ciphertext could not be decrypted.
	// It never says why.
	ErrDecryption = errors.New("seed: decryption failed")
	// ErrFormat indicates the secret is not 64 lowercase hex characters.
	ErrFormat = errors.New("seed: invalid secret format")
	// ErrKey indicates the private key is not RSA or not 4096 bits.
	ErrKey = errors.New("seed: invalid private key")
	// ErrStoreUnavailable indicates the secret was never provisioned or
	// cannot be read back.
	ErrStoreUnavailable = errors.New("seed: secret not available")
	// ErrMalformedCode indicates a candidate code that is not 6 digits.
	ErrMalformedCode = errors.New("seed: malformed code")
)

// Kind returns a short stable label for the taxonomy entry err belongs to.
// It is meant for logs and metric attributes, never for client responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrDecryption):
		return "decryption"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrKey):
		return "key"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrMalformedCode):
		return "malformed_code"
	default:
		return "unknown"
	}
}
