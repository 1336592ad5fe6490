package seed

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	keyOnce  sync.Once
	keyA     *rsa.PrivateKey
	keyB     *rsa.PrivateKey
	keyError error
)

// testKeys generates two 4096-bit keys once per test binary.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()

	keyOnce.Do(func() {
		keyA, keyError = rsa.GenerateKey(rand.Reader, KeyBits)
		if keyError != nil {
			return
		}
		keyB, keyError = rsa.GenerateKey(rand.Reader, KeyBits)
	})
	require.NoError(t, keyError)

	return keyA, keyB
}

func encrypt(t *testing.T, pub *rsa.PublicKey, plaintext []byte) string {
	t.Helper()

	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(ct)
}

func randomSecret(t *testing.T) string {
	t.Helper()

	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	return hex.EncodeToString(raw)
}

func TestValidate(t *testing.T) {
	accepted := []string{
		strings.Repeat("0", 64),
		strings.Repeat("f", 64),
		"  " + strings.Repeat("a1", 32) + "\n",
	}
	for _, s := range accepted {
		require.NoError(t, Validate(s), "expected %q to be accepted", s)
	}

	rejected := map[string]string{
		"empty":         "",
		"short":         strings.Repeat("a", 63),
		"long":          strings.Repeat("a", 65),
		"uppercase":     strings.Repeat("A", 64),
		"mixed case":    strings.Repeat("a", 63) + "F",
		"non hex":       strings.Repeat("a", 63) + "g",
		"inner space":   strings.Repeat("a", 31) + " " + strings.Repeat("a", 32),
		"multibyte":     strings.Repeat("a", 62) + "é",
		"only spaces":   strings.Repeat(" ", 64),
		"hex prefix 0x": "0x" + strings.Repeat("a", 62),
	}
	for name, s := range rejected {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, Validate(s), ErrFormat)
		})
	}
}

func TestDecrypt_RoundTrip(t *testing.T) {
	key, _ := testKeys(t)

	for range 5 {
		secret := randomSecret(t)
		got, err := Decrypt(encrypt(t, &key.PublicKey, []byte(secret)), key)
		require.NoError(t, err)
		require.Equal(t, secret, got)
	}
}

func TestDecrypt_TrimsWhitespace(t *testing.T) {
	key, _ := testKeys(t)
	secret := randomSecret(t)

	blob := "\n  " + encrypt(t, &key.PublicKey, []byte(" "+secret+"\r\n")) + "  \n"
	got, err := Decrypt(blob, key)
	require.NoError(t, err)
	require.Equal(t, secret, got)
}

func TestDecrypt_Errors(t *testing.T) {
	key, other := testKeys(t)
	secret := randomSecret(t)

	t.Run("invalid base64", func(t *testing.T) {
		_, err := Decrypt("not base64 !!!", key)
		require.ErrorIs(t, err, ErrEncoding)
	})

	t.Run("empty blob", func(t *testing.T) {
		_, err := Decrypt("", key)
		require.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := Decrypt(encrypt(t, &other.PublicKey, []byte(secret)), key)
		require.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("corrupted ciphertext", func(t *testing.T) {
		raw, err := base64.StdEncoding.DecodeString(encrypt(t, &key.PublicKey, []byte(secret)))
		require.NoError(t, err)
		raw[len(raw)/2] ^= 0xff

		_, err = Decrypt(base64.StdEncoding.EncodeToString(raw), key)
		require.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("wrong key and corruption are indistinguishable", func(t *testing.T) {
		_, errWrongKey := Decrypt(encrypt(t, &other.PublicKey, []byte(secret)), key)
		_, errShort := Decrypt(base64.StdEncoding.EncodeToString([]byte("short")), key)
		require.Equal(t, errWrongKey.Error(), errShort.Error())
	})

	t.Run("plaintext not utf8", func(t *testing.T) {
		_, err := Decrypt(encrypt(t, &key.PublicKey, []byte{0xff, 0xfe, 0xfd}), key)
		require.ErrorIs(t, err, ErrEncoding)
	})

	t.Run("plaintext uppercase hex", func(t *testing.T) {
		_, err := Decrypt(encrypt(t, &key.PublicKey, []byte(strings.ToUpper(secret))), key)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("plaintext too short", func(t *testing.T) {
		_, err := Decrypt(encrypt(t, &key.PublicKey, []byte(secret[:40])), key)
		require.ErrorIs(t, err, ErrFormat)
	})
}

func TestNewDecryptor_RejectsKeys(t *testing.T) {
	small, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = NewDecryptor(small)
	require.ErrorIs(t, err, ErrKey)

	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = NewDecryptor(ec)
	require.ErrorIs(t, err, ErrKey)

	_, err = NewDecryptor(nil)
	require.ErrorIs(t, err, ErrKey)

	var d *Decryptor
	_, err = d.Decrypt("AAAA")
	require.ErrorIs(t, err, ErrKey)
}

func TestLoadPrivateKey(t *testing.T) {
	key, _ := testKeys(t)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	loaded, err := LoadPrivateKey(pemData)
	require.NoError(t, err)
	require.True(t, key.Equal(loaded))

	path := filepath.Join(t.TempDir(), "student_private.pem")
	require.NoError(t, os.WriteFile(path, pemData, 0o600))
	loaded, err = LoadPrivateKeyFile(path)
	require.NoError(t, err)
	require.True(t, key.Equal(loaded))

	_, err = LoadPrivateKeyFile(filepath.Join(t.TempDir(), "missing.pem"))
	require.ErrorIs(t, err, ErrKey)

	_, err = LoadPrivateKey([]byte("garbage"))
	require.ErrorIs(t, err, ErrKey)

	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	_, err = LoadPrivateKey(pkcs1)
	require.ErrorIs(t, err, ErrKey)

	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecDER, err := x509.MarshalPKCS8PrivateKey(ec)
	require.NoError(t, err)
	_, err = LoadPrivateKey(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: ecDER}))
	require.ErrorIs(t, err, ErrKey)
}

func TestKind(t *testing.T) {
	require.Equal(t, "", Kind(nil))
	require.Equal(t, "encoding", Kind(ErrEncoding))
	require.Equal(t, "decryption", Kind(ErrDecryption))
	require.Equal(t, "format", Kind(ErrFormat))
	require.Equal(t, "key", Kind(ErrKey))
	require.Equal(t, "store_unavailable", Kind(errors.Join(errors.New("io"), ErrStoreUnavailable)))
	require.Equal(t, "malformed_code", Kind(ErrMalformedCode))
	require.Equal(t, "unknown", Kind(errors.New("other")))
}
