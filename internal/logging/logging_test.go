package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_FansOutToConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closer := New(&console, dir, "info")
	logger.Info("document opened", "path", "/tmp/book.fb2")
	logger.Debug("hidden")
	require.NoError(t, closer.Close())

	require.Contains(t, console.String(), "document opened")
	require.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `"msg":"document opened"`), "log file: %s", data)
	require.Contains(t, string(data), `"path":"/tmp/book.fb2"`)
}

func TestNew_MissingDirFallsBackToConsole(t *testing.T) {
	var console bytes.Buffer

	logger, closer := New(&console, filepath.Join(t.TempDir(), "missing"), "info")
	logger.Info("still logged")
	require.NoError(t, closer.Close())

	require.Contains(t, console.String(), "log file unavailable")
	require.Contains(t, console.String(), "still logged")
}

func TestFromContext(t *testing.T) {
	var console bytes.Buffer
	logger, _ := New(&console, "", "debug")

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("from context")
	require.Contains(t, console.String(), "from context")

	require.NotNil(t, FromContext(context.Background()))
}
