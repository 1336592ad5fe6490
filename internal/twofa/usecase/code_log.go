package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const codeLogLayout = "2006-01-02 15:04:05"

type CodeLogInput struct {
	Path     string
	Interval time.Duration
}

// RunCodeLog appends one line per tick to in.Path until ctx is done. The
// first line is written immediately.
func (s *Usecase) RunCodeLog(ctx context.Context, in CodeLogInput) error {
	if in.Interval <= 0 {
		in.Interval = time.Minute
	}

	ticker := time.NewTicker(in.Interval)
	defer ticker.Stop()

	for {
		if err := s.LogCode(ctx, in.Path); err != nil {
			slog.ErrorContext(ctx, "failed to write code log", "path", in.Path, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LogCode appends the current code, or an error line when no usable seed is
// stored, to path. Timestamps are UTC.
func (s *Usecase) LogCode(ctx context.Context, path string) error {
	ctx, span := s.startSpan(ctx, "LogCode")
	defer span.End()

	now := s.clock.Now()
	line := s.codeLine(ctx, now)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create code log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open code log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append code log: %w", err)
	}

	s.lastCodeLog.Store(now)
	return nil
}

func (s *Usecase) codeLine(ctx context.Context, now time.Time) string {
	stamp := now.UTC().Format(codeLogLayout)

	secret, err := s.store.Get(ctx)
	if err != nil {
		slog.WarnContext(ctx, "code log skipped, seed not available")
		return stamp + " - ERROR: seed not available"
	}

	code, err := s.otp.Generate(secret, now)
	if err != nil {
		slog.ErrorContext(ctx, "code log failed to generate code", "error", err)
		return stamp + " - ERROR generating TOTP: stored seed is invalid"
	}

	return stamp + " - 2FA Code: " + code
}
