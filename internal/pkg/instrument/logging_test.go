package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	buf.Reset()

	return line
}

func TestHandler_MasksAndCorrelates(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(newHandler(buf, "pkitotp", "info", nil, []string{"encrypted_seed", " Code "}))

	ctx := SetCorrelationID(context.Background(), "cid-1")
	logger.InfoContext(ctx, "request received",
		"code", "123456",
		"body", map[string]any{"encrypted_seed": "AAAA", "other": "x"},
		"raw", `{"code":"654321"}`,
	)

	line := decodeLine(t, buf)
	require.Equal(t, "request received", line["msg"])
	require.Equal(t, "INFO", line["severity"])
	require.Contains(t, line, "ts")
	require.Equal(t, "cid-1", line["_cID"])
	require.Equal(t, "pkitotp", line["service"])
	require.Equal(t, "***", line["code"])
	require.Equal(t, map[string]any{"encrypted_seed": "***", "other": "x"}, line["body"])
	require.JSONEq(t, `{"code":"***"}`, line["raw"].(string))
}

func TestHandler_WithAttrsKeepsContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(newHandler(buf, "", "debug", nil, nil)).With("component", "codelog")

	logger.DebugContext(SetCorrelationID(context.Background(), "cid-2"), "tick")

	line := decodeLine(t, buf)
	require.Equal(t, "codelog", line["component"])
	require.Equal(t, "cid-2", line["_cID"])
	require.NotContains(t, line, "service")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestCorrelationID(t *testing.T) {
	require.Empty(t, GetCorrelationID(context.Background()))
	require.Equal(t, "x", GetCorrelationID(SetCorrelationID(context.Background(), "x")))
}

func TestNew_Disabled(t *testing.T) {
	ins, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, ins.Tracer("t"))
	require.NotNil(t, ins.Meter("m"))
	require.NoError(t, ins.Shutdown(context.Background()))
}

func TestHandler_MasksLoggerAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(newHandler(buf, "", "info", nil, []string{"secret"})).
		With("secret", "0123", slog.Group("req", slog.String("Secret", "abcd"), slog.Int("n", 1)))

	logger.Info("provisioned", "payload", []byte(`[{"secret":"x"}]`))

	line := decodeLine(t, buf)
	require.Equal(t, "***", line["secret"])
	require.Equal(t, map[string]any{"Secret": "***", "n": float64(1)}, line["req"])
	require.JSONEq(t, `[{"secret":"***"}]`, line["payload"].(string))
}

func TestRenameAttr_Source(t *testing.T) {
	a := renameAttr(nil, slog.Any(slog.SourceKey, &slog.Source{File: "/src/pkitotp/internal/twofa/usecase/verify_code.go", Line: 12}))
	require.Equal(t, "file", a.Key)
	require.Equal(t, "internal/twofa/usecase/verify_code.go:12", a.Value.String())

	a = renameAttr(nil, slog.Any(slog.SourceKey, &slog.Source{File: "/go/pkg/mod/x.go", Line: 1}))
	require.True(t, a.Equal(slog.Attr{}))
}
