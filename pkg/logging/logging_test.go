package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/nanoframe/pkg/config"
)

func TestJSONOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, false, "host")

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, slog.LevelDebug, l.Level())
	l.Debug("shown", "window_id", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "host", rec["component"])
	assert.Equal(t, "abc", rec["window_id"])

	require.Error(t, l.SetLevel("chatty"))
}

func TestConfigureAddsLogFile(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, true, "")
	path := filepath.Join(t.TempDir(), "logs", "host.log")
	require.NoError(t, l.Configure(config.LoggingConfig{Level: "warn", FilePath: path}))
	t.Cleanup(func() { l.Close() })

	l.Info("dropped")
	l.Warn("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestRollingFileRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roll.log")
	r, err := newRollingFile(path, 1)
	require.NoError(t, err)
	t.Cleanup(func() { r.file.Close() })

	chunk := []byte(strings.Repeat("x", 600*1024))
	_, err = r.Write(chunk)
	require.NoError(t, err)
	_, err = r.Write(chunk)
	require.NoError(t, err)

	_, err = os.Stat(path + ".1")
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())
}
