package seed

import "strings"

// SecretLength is the number of hex characters in a canonical secret.
const SecretLength = 64

// Validate checks that s, once surrounding whitespace is removed, is exactly
// 64 characters of 0-9a-f. Uppercase hex is rejected.
func Validate(s string) error {
	s = strings.TrimSpace(s)
	if len(s) != SecretLength {
		return ErrFormat
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ErrFormat
		}
	}

	return nil
}
