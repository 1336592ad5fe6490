package usecase

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/pkitotp/internal/pkg/clock"
	"github.com/shandysiswandi/pkitotp/internal/pkg/goerror"
	"github.com/shandysiswandi/pkitotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/pkitotp/internal/pkg/hash"
	"github.com/shandysiswandi/pkitotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/pkitotp/internal/pkg/instrument"
	"github.com/shandysiswandi/pkitotp/internal/pkg/otp"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seedstore"
	"github.com/shandysiswandi/pkitotp/internal/pkg/uid"
	"github.com/shandysiswandi/pkitotp/internal/pkg/validator"
)

var (
	testSecret = strings.Repeat("0123456789abcdef", 4)
	// 10s into a step: unix time of a whole minute is a multiple of 30.
	testNow = time.Date(2024, 1, 2, 3, 4, 10, 0, time.UTC)
)

type fakeDecryptor struct {
	secret string
	err    error
	calls  int
}

func (f *fakeDecryptor) Decrypt(string) (string, error) {
	f.calls++
	return f.secret, f.err
}

type fakeMessaging struct {
	mu     sync.Mutex
	events []SeedProvisionedEvent
}

func (f *fakeMessaging) PublishSeedProvisioned(_ context.Context, msg SeedProvisionedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, msg)
	return nil
}

type fakeIdempotency struct {
	err error
}

func (f fakeIdempotency) Exec(ctx context.Context, _ string, fn func(context.Context) error, _ ...idempotency.Option) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type fixture struct {
	uc        *Usecase
	store     *seedstore.File
	decryptor *fakeDecryptor
	msg       *fakeMessaging
	clock     *clock.Fixed
	goroutine *goroutine.Manager
}

func newFixture(t *testing.T, idemp idempotency.Idempotency) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{
		store:     seedstore.NewFile(filepath.Join(t.TempDir(), "data", "seed.txt")),
		decryptor: &fakeDecryptor{secret: testSecret},
		msg:       &fakeMessaging{},
		clock:     clock.NewFixed(testNow),
		goroutine: goroutine.NewManager(4),
	}
	ids, err := uid.NewSnowflakeNode(1)
	require.NoError(t, err)

	f.uc = New(Dependency{
		Store:         f.store,
		StoreDriver:   seedstore.DriverFile,
		Decryptor:     f.decryptor,
		OTP:           otp.NewEngine("test"),
		Fingerprint:   hash.NewHMACSHA256("fp-key"),
		RepoMessaging: f.msg,
		Idempotency:   idemp,
		Validator:     v,
		Clock:         f.clock,
		Instrument:    instrument.NewNoop(),
		Goroutine:     f.goroutine,
		UID:           ids,
	})

	return f
}

func requireGoError(t *testing.T, err error, status int, msg string) {
	t.Helper()

	gerr, ok := goerror.As(err)
	require.True(t, ok, "expected goerror, got %v", err)
	require.Equal(t, status, gerr.StatusCode())
	require.Equal(t, msg, gerr.Msg())
}

func TestDecryptSeed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.uc.DecryptSeed(ctx, DecryptSeedInput{EncryptedSeed: "blob"}))

	got, err := f.store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, testSecret, got)

	require.NoError(t, f.goroutine.Wait())
	require.Len(t, f.msg.events, 1)
	ev := f.msg.events[0]
	require.True(t, hash.NewHMACSHA256("fp-key").Match(ev.Fingerprint, testSecret))
	require.NotContains(t, ev.Fingerprint, testSecret)
	require.Equal(t, seedstore.DriverFile, ev.StoreDriver)
	require.Equal(t, testNow.Unix(), ev.At)
	require.Positive(t, ev.ID)
}

func TestDecryptSeed_Failures(t *testing.T) {
	t.Parallel()

	for _, cause := range []error{seed.ErrEncoding, seed.ErrDecryption, seed.ErrFormat, seed.ErrKey} {
		t.Run(seed.Kind(cause), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)
			f.decryptor.err = cause
			f.decryptor.secret = ""

			err := f.uc.DecryptSeed(context.Background(), DecryptSeedInput{EncryptedSeed: "blob"})
			requireGoError(t, err, http.StatusInternalServerError, "Decryption failed")
			require.ErrorIs(t, err, cause)

			ok, err := f.store.Exists(context.Background())
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestDecryptSeed_StoreFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	f.uc.store = seedstore.NewFile(filepath.Join(blocker, "seed.txt"))

	err := f.uc.DecryptSeed(context.Background(), DecryptSeedInput{EncryptedSeed: "blob"})
	requireGoError(t, err, http.StatusInternalServerError, "Decryption failed")
	require.ErrorIs(t, err, seed.ErrStoreUnavailable)
}

func TestDecryptSeed_EmptyBlob(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.decryptor.err = seed.ErrDecryption

	err := f.uc.DecryptSeed(context.Background(), DecryptSeedInput{EncryptedSeed: ""})
	requireGoError(t, err, http.StatusInternalServerError, msgDecryptionFailed)
	require.Equal(t, 1, f.decryptor.calls)

	exists, err := f.store.Exists(context.Background())
	require.NoError(t, err)
	require.False(t, exists)
}

func TestDecryptSeed_IdempotencyKeyTooLong(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fakeIdempotency{})

	err := f.uc.DecryptSeed(context.Background(), DecryptSeedInput{
		EncryptedSeed:  "blob",
		IdempotencyKey: strings.Repeat("k", 129),
	})
	requireGoError(t, err, http.StatusUnprocessableEntity, "Validation error")
	require.Zero(t, f.decryptor.calls)
}

func TestDecryptSeed_Idempotency(t *testing.T) {
	t.Parallel()

	t.Run("completed key is a success without work", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, fakeIdempotency{err: idempotency.ErrAlreadyCompleted})
		require.NoError(t, f.uc.DecryptSeed(context.Background(), DecryptSeedInput{EncryptedSeed: "b", IdempotencyKey: "k"}))
		require.Zero(t, f.decryptor.calls)
	})

	t.Run("in progress key conflicts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, fakeIdempotency{err: idempotency.ErrAlreadyInProgress})
		err := f.uc.DecryptSeed(context.Background(), DecryptSeedInput{EncryptedSeed: "b", IdempotencyKey: "k"})
		requireGoError(t, err, http.StatusConflict, "Request already in progress")
	})

	t.Run("tracker failure is opaque", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, fakeIdempotency{err: errors.New("redis down")})
		err := f.uc.DecryptSeed(context.Background(), DecryptSeedInput{EncryptedSeed: "b", IdempotencyKey: "k"})
		requireGoError(t, err, http.StatusInternalServerError, "Decryption failed")
	})

	t.Run("fresh key provisions", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, fakeIdempotency{})
		require.NoError(t, f.uc.DecryptSeed(context.Background(), DecryptSeedInput{EncryptedSeed: "b", IdempotencyKey: "k"}))
		require.Equal(t, 1, f.decryptor.calls)
	})
}

func TestGenerateCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.uc.GenerateCode(ctx)
	requireGoError(t, err, http.StatusInternalServerError, "Seed not decrypted yet")
	require.ErrorIs(t, err, seed.ErrStoreUnavailable)

	require.NoError(t, f.store.Put(ctx, testSecret))

	out, err := f.uc.GenerateCode(ctx)
	require.NoError(t, err)
	want, err := otp.NewEngine("x").Generate(testSecret, testNow)
	require.NoError(t, err)
	require.Equal(t, want, out.Code)
	require.Equal(t, 19, out.ValidFor)

	f.clock.At = testNow.Add(19 * time.Second)
	out, err = f.uc.GenerateCode(ctx)
	require.NoError(t, err)
	require.Equal(t, want, out.Code)
	require.Equal(t, 0, out.ValidFor)
}

func TestGenerateCode_CorruptedStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.store.Path()), 0o700))
	require.NoError(t, os.WriteFile(f.store.Path(), []byte(strings.ToUpper(testSecret)+"\n"), 0o600))

	_, err := f.uc.GenerateCode(context.Background())
	requireGoError(t, err, http.StatusInternalServerError, "Seed not decrypted yet")
	require.ErrorIs(t, err, seed.ErrStoreUnavailable)
	require.ErrorIs(t, err, seed.ErrFormat)
}

func TestVerifyCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	engine := otp.NewEngine("x")

	_, err := f.uc.VerifyCode(ctx, VerifyCodeInput{})
	requireGoError(t, err, http.StatusBadRequest, "Missing code")

	_, err = f.uc.VerifyCode(ctx, VerifyCodeInput{Code: "123456"})
	requireGoError(t, err, http.StatusInternalServerError, "Seed not decrypted yet")

	require.NoError(t, f.store.Put(ctx, testSecret))

	codeAt := func(ts time.Time) string {
		c, err := engine.Generate(testSecret, ts)
		require.NoError(t, err)
		return c
	}

	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "current step", code: codeAt(testNow), want: true},
		{name: "previous step", code: codeAt(testNow.Add(-30 * time.Second)), want: true},
		{name: "next step", code: codeAt(testNow.Add(30 * time.Second)), want: true},
		{name: "two steps back", code: codeAt(testNow.Add(-60 * time.Second)), want: false},
		{name: "letters", code: "abcdef", want: false},
		{name: "too short", code: "12345", want: false},
	}

	for _, tt := range tests {
		out, err := f.uc.VerifyCode(ctx, VerifyCodeInput{Code: tt.code})
		require.NoError(t, err, tt.name)
		require.Equal(t, tt.want, out.Valid, tt.name)
	}
}

func TestLogCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cron", "last_code.txt")

	require.True(t, f.uc.Health(ctx).LastCodeLog.IsZero())

	require.NoError(t, f.uc.LogCode(ctx, path))
	require.NoError(t, f.store.Put(ctx, testSecret))
	f.clock.At = testNow.Add(time.Minute)
	require.NoError(t, f.uc.LogCode(ctx, path))

	want, err := otp.NewEngine("x").Generate(testSecret, f.clock.At)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t,
		"2024-01-02 03:04:10 - ERROR: seed not available\n"+
			"2024-01-02 03:05:10 - 2FA Code: "+want+"\n",
		string(data),
	)

	health := f.uc.Health(ctx)
	require.True(t, health.SeedPresent)
	require.Equal(t, f.clock.At, health.LastCodeLog)
}

func TestRunCodeLog_StopsOnCancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	path := filepath.Join(t.TempDir(), "last_code.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.uc.RunCodeLog(ctx, CodeLogInput{Path: path, Interval: time.Hour})
	require.ErrorIs(t, err, context.Canceled)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "ERROR: seed not available")
}

func TestDecryptSeed_OverwriteReplacesSecret(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	engine := otp.NewEngine("test")
	secondSecret := strings.Repeat("fedcba9876543210", 4)

	require.NoError(t, f.uc.DecryptSeed(ctx, DecryptSeedInput{EncryptedSeed: "first"}))
	first, err := f.uc.GenerateCode(ctx)
	require.NoError(t, err)

	f.decryptor.secret = secondSecret
	require.NoError(t, f.uc.DecryptSeed(ctx, DecryptSeedInput{EncryptedSeed: "second"}))

	want, err := engine.Generate(secondSecret, testNow)
	require.NoError(t, err)
	require.NotEqual(t, first.Code, want)

	got, err := f.uc.GenerateCode(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got.Code)

	out, err := f.uc.VerifyCode(ctx, VerifyCodeInput{Code: first.Code})
	require.NoError(t, err)
	require.False(t, out.Valid)

	period := time.Duration(otp.Period) * time.Second
	for _, step := range []time.Duration{-period, period} {
		old, err := engine.Generate(testSecret, testNow.Add(step))
		require.NoError(t, err)
		out, err := f.uc.VerifyCode(ctx, VerifyCodeInput{Code: old})
		require.NoError(t, err)
		require.False(t, out.Valid, "code of the replaced seed at %s", step)
	}

	out, err = f.uc.VerifyCode(ctx, VerifyCodeInput{Code: want})
	require.NoError(t, err)
	require.True(t, out.Valid)

	require.NoError(t, f.goroutine.Wait())
	require.Len(t, f.msg.events, 2)
	require.NotEqual(t, f.msg.events[0].Fingerprint, f.msg.events[1].Fingerprint)
}
