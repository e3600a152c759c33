package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleweaver/internal/config"
)

func TestSetup_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&config.Config{Environment: "production", LogLevel: slog.LevelInfo}, &buf)

	WithError(log, errors.New("boom")).Info("load failed", "dir", "games/demo")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "load failed", rec["msg"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, "games/demo", rec["dir"])
}

func TestSetup_DevelopmentWritesTextAndFilters(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&config.Config{Environment: "development", LogLevel: slog.LevelWarn}, &buf)

	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "k=v")
}

func TestOutput_FallbackWithoutPath(t *testing.T) {
	w, closeLog, err := Output("", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, io.Discard, w)
	assert.NoError(t, closeLog())
}

func TestOutput_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	w, closeLog, err := Output(path, io.Discard)
	require.NoError(t, err)

	Setup(&config.Config{Environment: "development", LogLevel: slog.LevelDebug}, w).Debug("run started", "trigger", "<<On Talk>>")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=\"run started\"")
}

func TestOutput_BadPath(t *testing.T) {
	_, _, err := Output(filepath.Join(t.TempDir(), "missing", "game.log"), io.Discard)
	assert.Error(t, err)
}
