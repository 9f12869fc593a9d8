package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"pdf-qa-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers_NoLogger(t *testing.T) {
	Logger = nil
	// Must not panic before initialization.
	Info("info")
	Warn("warn")
	Error("error")
	Debug("debug")
}

func TestSetOutput_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo)

	Info("Document uploaded", "document_id", 3)
	Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Document uploaded", entry["msg"])
	assert.EqualValues(t, 3, entry["document_id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestInitLogger_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	closer, err := InitLogger(&config.Config{GinMode: "release", LogFile: path})
	require.NoError(t, err)

	Warn("No text extracted from PDF.")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No text extracted from PDF.")
}
