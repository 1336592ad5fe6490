package otp

import (
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
)

const (
	// Period is the length of one time step in seconds.
	Period uint = 30
	// Digits is the number of digits in a code.
	Digits = otp.DigitsSix
	// Algorithm is the HMAC hash used for every code.
	Algorithm = otp.AlgorithmSHA1
)

// OTP defines the contract for time-step code operations.
type OTP interface {
	// KeyMaterial converts a hex seed into the base32 text used as TOTP key.
	KeyMaterial(secret string) (string, error)
	// Generate returns the code for the step containing now.
	Generate(secret string, now time.Time) (string, error)
	// Verify reports whether candidate matches any step within window of now.
	Verify(secret, candidate string, window uint, now time.Time) (bool, error)
	// URI returns an otpauth:// provisioning URI for the seed.
	URI(secret, account string) (string, error)
}

// Engine implements OTP on top of github.com/pquerna/otp/totp.
type Engine struct {
	issuer string
}

// NewEngine constructs an Engine. The issuer only appears in provisioning
// URIs.
func NewEngine(issuer string) *Engine {
	return &Engine{issuer: issuer}
}

// KeyMaterial validates the hex seed, decodes it to 32 bytes and encodes
// those bytes with the standard (padded) base32 alphabet.
func (e *Engine) KeyMaterial(secret string) (string, error) {
	raw, err := decodeSeed(secret)
	if err != nil {
		return "", err
	}

	return base32.StdEncoding.EncodeToString(raw), nil
}

// Generate returns the zero-padded 6 digit code for the step floor(now/30).
func (e *Engine) Generate(secret string, now time.Time) (string, error) {
	key, err := e.KeyMaterial(secret)
	if err != nil {
		return "", err
	}

	code, err := totp.GenerateCodeCustom(key, now, opts(0))
	if err != nil {
		return "", fmt.Errorf("otp: generate: %w", err)
	}

	return code, nil
}

// Verify reports whether candidate equals the code of any step in
// [cur-window, cur+window]. A candidate that is not exactly 6 ASCII digits
// is rejected without computing any code or reading the seed. The error is
// non-nil only when the seed itself is unusable.
func (e *Engine) Verify(secret, candidate string, window uint, now time.Time) (bool, error) {
	if !ValidCandidate(candidate) {
		return false, nil
	}

	key, err := e.KeyMaterial(secret)
	if err != nil {
		return false, err
	}

	ok, err := totp.ValidateCustom(candidate, key, now, opts(window))
	if err != nil {
		return false, nil //nolint:nilerr // a rejected code is a verdict, not a failure
	}

	return ok, nil
}

// URI returns an otpauth:// URI so the seed can be enrolled in an
// authenticator app.
func (e *Engine) URI(secret, account string) (string, error) {
	raw, err := decodeSeed(secret)
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: account,
		Period:      Period,
		Secret:      raw,
		Digits:      Digits,
		Algorithm:   Algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("otp: uri: %w", err)
	}

	return key.URL(), nil
}

// ValidCandidate reports whether code has the shape of a code: exactly 6
// ASCII digits.
func ValidCandidate(code string) bool {
	if len(code) != Digits.Length() {
		return false
	}

	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}

	return true
}

// SecondsRemaining returns period - (now mod period) - 1, so it counts down
// from period-1 to 0 within each step.
func SecondsRemaining(period uint, now time.Time) int {
	if period == 0 {
		period = Period
	}

	p := int64(period)
	elapsed := ((now.Unix() % p) + p) % p

	return int(p - elapsed - 1)
}

func decodeSeed(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if err := seed.Validate(secret); err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", seed.ErrFormat, err)
	}

	return raw, nil
}

func opts(window uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      window,
		Digits:    Digits,
		Algorithm: Algorithm,
	}
}
