package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestInitializeWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, Initialize("debug", file))
	t.Cleanup(func() { _ = Close() })

	WarnWithFields("warned", nil, WithUserID("u1"))
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))
}

func TestInitializeCreatesLogDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "dir", "app.log")
	require.NoError(t, Initialize("info", file))
	t.Cleanup(func() { _ = Close() })

	_, err := os.Stat(file)
	assert.NoError(t, err)
}

func TestInitializeRejectsUnusablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := Initialize("info", filepath.Join(blocker, "app.log"))
	assert.ErrorContains(t, err, "create log directory")
}
