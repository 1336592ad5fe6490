package otp

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // HOTP reference
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
)

const testSeed = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// referenceCode is a direct RFC 4226 computation used to cross-check the
// library-backed engine.
func referenceCode(t *testing.T, secret string, step int64) string {
	t.Helper()

	key, err := hex.DecodeString(secret)
	require.NoError(t, err)

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(step)) //nolint:gosec // non-negative in tests

	mac := hmac.New(sha1.New, key)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%06d", value%1_000_000)
}

func TestEngine_KeyMaterial(t *testing.T) {
	e := NewEngine("pkitotp")

	key, err := e.KeyMaterial(testSeed)
	require.NoError(t, err)

	raw, err := hex.DecodeString(testSeed)
	require.NoError(t, err)
	require.Equal(t, base32.StdEncoding.EncodeToString(raw), key)

	_, err = e.KeyMaterial(strings.ToUpper(testSeed))
	require.ErrorIs(t, err, seed.ErrFormat)

	_, err = e.KeyMaterial("abc")
	require.ErrorIs(t, err, seed.ErrFormat)
}

func TestEngine_Generate_MatchesReference(t *testing.T) {
	e := NewEngine("pkitotp")

	for _, unix := range []int64{0, 29, 30, 59, 1_111_111_109, 1_234_567_890, 2_000_000_000} {
		got, err := e.Generate(testSeed, time.Unix(unix, 0))
		require.NoError(t, err)
		require.Len(t, got, 6)
		require.Equal(t, referenceCode(t, testSeed, unix/30), got, "unix=%d", unix)
	}
}

func TestEngine_Generate_DeterministicWithinStep(t *testing.T) {
	e := NewEngine("pkitotp")
	start := time.Unix(1_700_000_010, 0) // step boundary is 1_700_000_010

	first, err := e.Generate(testSeed, start)
	require.NoError(t, err)

	for i := range 30 {
		got, err := e.Generate(testSeed, start.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.Equal(t, first, got)
	}

	next, err := e.Generate(testSeed, start.Add(30*time.Second))
	require.NoError(t, err)
	require.Equal(t, referenceCode(t, testSeed, 1_700_000_040/30), next)
}

func TestEngine_Generate_InvalidSeed(t *testing.T) {
	_, err := NewEngine("pkitotp").Generate("not-a-seed", time.Now())
	require.ErrorIs(t, err, seed.ErrFormat)
}

func TestEngine_Verify_Window(t *testing.T) {
	e := NewEngine("pkitotp")
	now := time.Unix(1_700_000_025, 0)

	current, err := e.Generate(testSeed, now)
	require.NoError(t, err)
	previous, err := e.Generate(testSeed, now.Add(-30*time.Second))
	require.NoError(t, err)
	next, err := e.Generate(testSeed, now.Add(30*time.Second))
	require.NoError(t, err)
	twoBack, err := e.Generate(testSeed, now.Add(-60*time.Second))
	require.NoError(t, err)

	cases := []struct {
		name   string
		code   string
		window uint
		want   bool
	}{
		{"current exact", current, 0, true},
		{"previous exact", previous, 0, false},
		{"previous window 1", previous, 1, true},
		{"next window 1", next, 1, true},
		{"two back window 1", twoBack, 1, false},
		{"two back window 2", twoBack, 2, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := e.Verify(testSeed, tc.code, tc.window, now)
			require.NoError(t, err)
			require.Equal(t, tc.want, ok)
		})
	}
}

func TestEngine_Verify_MalformedCandidate(t *testing.T) {
	e := NewEngine("pkitotp")
	now := time.Unix(1_700_000_025, 0)

	for _, candidate := range []string{"", "12345", "1234567", "12a456", " 12345", "１２３４５６"} {
		ok, err := e.Verify(testSeed, candidate, 1, now)
		require.NoError(t, err)
		require.False(t, ok, "candidate %q", candidate)
	}

	_, err := e.Verify("bad", "123456", 1, now)
	require.ErrorIs(t, err, seed.ErrFormat)
}

func TestEngine_Verify_MalformedCandidateBeforeSeed(t *testing.T) {
	e := NewEngine("pkitotp")
	now := time.Unix(1_700_000_025, 0)

	for _, secret := range []string{"bad", "", strings.Repeat("AB", 32), strings.Repeat("zz", 32)} {
		ok, err := e.Verify(secret, "12345", 1, now)
		require.NoError(t, err, "secret %q", secret)
		require.False(t, ok)
	}
}

func TestValidCandidate(t *testing.T) {
	require.True(t, ValidCandidate("000000"))
	require.True(t, ValidCandidate("987654"))
	require.False(t, ValidCandidate("98765"))
	require.False(t, ValidCandidate("98765x"))
	require.False(t, ValidCandidate("-12345"))
}

func TestSecondsRemaining(t *testing.T) {
	require.Equal(t, 29, SecondsRemaining(30, time.Unix(0, 0)))
	require.Equal(t, 29, SecondsRemaining(30, time.Unix(60, 0)))
	require.Equal(t, 0, SecondsRemaining(30, time.Unix(29, 0)))
	require.Equal(t, 0, SecondsRemaining(30, time.Unix(59, 0)))
	require.Equal(t, 14, SecondsRemaining(30, time.Unix(45, 0)))
	require.Equal(t, 29, SecondsRemaining(0, time.Unix(90, 0)))

	prev := SecondsRemaining(30, time.Unix(1_700_000_010, 0))
	for i := int64(1); i < 30; i++ {
		got := SecondsRemaining(30, time.Unix(1_700_000_010+i, 0))
		require.Equal(t, prev-1, got)
		prev = got
	}
	require.Equal(t, 29, SecondsRemaining(30, time.Unix(1_700_000_040, 0)))
}

func TestEngine_URI(t *testing.T) {
	e := NewEngine("pkitotp")

	uri, err := e.URI(testSeed, "student")
	require.NoError(t, err)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	require.Equal(t, "otpauth", u.Scheme)
	require.Equal(t, "totp", u.Host)

	q := u.Query()
	require.Equal(t, "pkitotp", q.Get("issuer"))
	require.Equal(t, "30", q.Get("period"))
	require.Equal(t, "6", q.Get("digits"))
	require.Equal(t, "SHA1", q.Get("algorithm"))

	key, err := e.KeyMaterial(testSeed)
	require.NoError(t, err)
	require.Equal(t, strings.TrimRight(key, "="), q.Get("secret"))

	_, err = e.URI("zz", "student")
	require.ErrorIs(t, err, seed.ErrFormat)
}
