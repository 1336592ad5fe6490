package seedctl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/shandysiswandi/pkitotp/internal/pkg/clock"
	"github.com/shandysiswandi/pkitotp/internal/pkg/otp"
	"github.com/shandysiswandi/pkitotp/internal/pkg/pki"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
	"github.com/shandysiswandi/pkitotp/internal/pkg/seedstore"
)

// verifyWindow matches the window used by the service.
const verifyWindow uint = 1

var (
	// ErrMissingSetting is returned when a command needs an unset variable.
	ErrMissingSetting = errors.New("missing setting")
	// ErrUnexpectedResponse is returned when the seed API answers without
	// an encrypted seed.
	ErrUnexpectedResponse = errors.New("unexpected seed api response")
)

func runKeygen(cfg Config, out io.Writer) error {
	key, err := pki.GenerateKey(cfg.Bits)
	if err != nil {
		return err
	}

	if err := pki.WriteKeyPair(key, cfg.PrivateKeyPath, cfg.PublicKeyPath); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "generated %d-bit key pair: %s, %s\n", key.N.BitLen(), cfg.PrivateKeyPath, cfg.PublicKeyPath)
	return err
}

type seedRequest struct {
	StudentID     string `json:"student_id"`
	GithubRepoURL string `json:"github_repo_url"`
	PublicKey     string `json:"public_key"`
}

type seedResponse struct {
	Status        string `json:"status"`
	EncryptedSeed string `json:"encrypted_seed"`
	Error         string `json:"error"`
}

func runRequest(ctx context.Context, cfg Config, out io.Writer) error {
	for _, s := range []struct{ name, value string }{
		{"SEED_API_URL", cfg.APIURL},
		{"STUDENT_ID", cfg.StudentID},
		{"GITHUB_REPO_URL", cfg.GithubRepoURL},
	} {
		if strings.TrimSpace(s.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingSetting, s.name)
		}
	}

	pub, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	if _, err := pki.ParsePublicKey(pub); err != nil {
		return err
	}

	payload, err := json.Marshal(seedRequest{
		StudentID:     cfg.StudentID,
		GithubRepoURL: cfg.GithubRepoURL,
		PublicKey:     string(pub),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	client := &http.Client{Timeout: cfg.APITimeout}
	backoff := retry.WithMaxRetries(cfg.APIRetries, retry.NewExponential(max(cfg.APIRetryBackoffMin, time.Millisecond)))

	var resp seedResponse
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := postSeedRequest(ctx, client, cfg.APIURL, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return err
	}

	blob := strings.TrimSpace(resp.EncryptedSeed)
	if err := writeText(cfg.EncryptedSeedPath, blob+"\n", 0o600); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "encrypted seed saved to %s\n", cfg.EncryptedSeedPath)
	return err
}

// postSeedRequest sends one request. Transport failures and 5xx answers are
// retryable; everything else is final.
func postSeedRequest(ctx context.Context, client *http.Client, url string, payload []byte) (seedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return seedResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return seedResponse{}, retry.RetryableError(fmt.Errorf("post seed request: %w", err))
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return seedResponse{}, retry.RetryableError(fmt.Errorf("read response: %w", err))
	}

	if res.StatusCode >= http.StatusInternalServerError {
		return seedResponse{}, retry.RetryableError(fmt.Errorf("%w: status %d", ErrUnexpectedResponse, res.StatusCode))
	}

	var out seedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return seedResponse{}, fmt.Errorf("%w: status %d: %s", ErrUnexpectedResponse, res.StatusCode, bytes.TrimSpace(body))
	}

	if res.StatusCode/100 != 2 || out.Status != "success" || strings.TrimSpace(out.EncryptedSeed) == "" {
		return seedResponse{}, fmt.Errorf("%w: status %d: %s", ErrUnexpectedResponse, res.StatusCode, bytes.TrimSpace(body))
	}

	return out, nil
}

func runDecrypt(ctx context.Context, cfg Config, out io.Writer) error {
	blob, err := os.ReadFile(cfg.EncryptedSeedPath)
	if err != nil {
		return fmt.Errorf("read encrypted seed (run %s first): %w", CommandRequest, err)
	}

	key, err := seed.LoadPrivateKeyFile(cfg.PrivateKeyPath)
	if err != nil {
		return err
	}

	secret, err := seed.Decrypt(string(blob), key)
	if err != nil {
		return err
	}

	store := seedstore.NewFile(cfg.SeedFilePath)
	if err := store.Put(ctx, secret); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "seed decrypted (%d hex characters) and saved to %s\n", len(secret), store.Path())
	return err
}

func runCode(ctx context.Context, cfg Config, out io.Writer, clk clock.Clocker) error {
	store := seedstore.NewFile(cfg.SeedFilePath)
	secret, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("read seed (run %s first): %w", CommandDecrypt, err)
	}

	engine := otp.NewEngine("pkitotp")
	now := clk.Now()

	code, err := engine.Generate(secret, now)
	if err != nil {
		return err
	}

	valid, err := engine.Verify(secret, code, verifyWindow, now)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "current code: %s\n", code)
	fmt.Fprintf(out, "valid for: %ds\n", otp.SecondsRemaining(otp.Period, now))
	fmt.Fprintf(out, "self-verification: %t\n", valid)

	if cfg.PrintURI {
		uri, err := engine.URI(secret, cfg.Account)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "uri: %s\n", uri)
	}

	return nil
}

func runProof(ctx context.Context, cfg Config, out io.Writer) error {
	commit := strings.TrimSpace(cfg.CommitHash)
	if commit == "" {
		var err error
		if commit, err = headCommit(ctx); err != nil {
			return err
		}
	}

	sender, err := pki.ReadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return err
	}

	recipient, err := pki.ReadPublicKey(cfg.InstructorKeyPath)
	if err != nil {
		return err
	}

	proof, err := pki.CommitProof(sender, recipient, commit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "commit: %s\n", commit)
	_, err = fmt.Fprintf(out, "proof: %s\n", base64.StdEncoding.EncodeToString(proof))
	return err
}

func headCommit(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	b, err := exec.CommandContext(ctx, "git", "log", "-1", "--format=%H").Output()
	if err != nil {
		return "", fmt.Errorf("git log: %w", err)
	}

	commit := strings.TrimSpace(string(b))
	if commit == "" {
		return "", fmt.Errorf("%w: no commit found", ErrMissingSetting)
	}

	return commit, nil
}

func writeText(path, data string, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, []byte(data), perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
