package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitRejectsInvalidLevel(t *testing.T) {
	err := Init("not-a-level", "json", "stdout")
	assert.Error(t, err)
}

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	require.NoError(t, Init("debug", "json", path))
	defer func() { Log = zap.NewNop() }()

	Info("hello", zap.String("key", "value"))
	require.NoError(t, Log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := string(data)
	assert.Contains(t, line, `"message":"hello"`)
	assert.Contains(t, line, `"key":"value"`)
	assert.Contains(t, line, `"level":"info"`)
}

func TestInitRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	require.NoError(t, Init("warn", "json", path))
	defer func() { Log = zap.NewNop() }()

	Debug("filtered out")
	Warn("kept")
	require.NoError(t, Log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.False(t, strings.Contains(string(data), "filtered out"))
	assert.Contains(t, string(data), "kept")
}
