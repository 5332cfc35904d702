package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_DefaultsToInfo(t *testing.T) {
	l, err := New(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Sync() })

	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.Same(t, l, zap.L())
}

func TestNew_DebugConsole(t *testing.T) {
	l, err := New(Options{Level: " DEBUG ", Format: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")
}

func TestNew_WritesToConfiguredPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")
	l, err := New(Options{OutputPaths: []string{path}})
	require.NoError(t, err)

	l.Info("order verified", zap.String("order_id", "ORD-1"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"order_id":"ORD-1"`)
}
