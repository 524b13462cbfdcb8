package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_WritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dmm.log")
	t.Setenv("LOG_FILE", path)

	Initialize("debug")
	Get().Info().Msg("file sink check")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file sink check")
}

func TestInitialize_BadLogFileFallsBackToConsole(t *testing.T) {
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "missing", "dmm.log"))

	// Must not panic; logging still works against the console writer.
	Initialize("info")
	Get().Info().Msg("console fallback check")
}

func TestFileWriter_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.log")

	w, err := FileWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)

	w, err = FileWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}
