package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"fuelcoach-go/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	require.Equal(t, "network_error", ErrorKind(0, true))
	require.Equal(t, "http_401", ErrorKind(401, true))
	require.Equal(t, "http_409", ErrorKind(409, true))
	require.Equal(t, "http_4xx", ErrorKind(422, true))
	require.Equal(t, "http_5xx", ErrorKind(503, true))
	require.Equal(t, "error", ErrorKind(200, true))
	require.Equal(t, "ok", ErrorKind(204, false))
}

// captureConsole swaps the console writer for the duration of the test.
func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := consoleOutput
	consoleOutput = &buf
	t.Cleanup(func() {
		consoleOutput = prev
		_ = Setup(nil)
	})
	return &buf
}

func TestSetupWritesLogFileWithoutChattyConsole(t *testing.T) {
	console := captureConsole(t)
	path := filepath.Join(t.TempDir(), "logs", "client.log")
	cfg := config.Default()
	cfg.Security.LogFile = path
	require.NoError(t, Setup(cfg))

	WithRequest("GET", "/auth/me", log.Fields{"attempt": 1}).Info("probe")
	log.Warn("queue persistence failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"path":"/auth/me"`)
	require.Contains(t, string(data), "queue persistence failed")

	require.NotContains(t, console.String(), "probe")
	require.Contains(t, console.String(), "queue persistence failed")
}

func TestSetupDebugLevel(t *testing.T) {
	console := captureConsole(t)
	cfg := config.Default()
	cfg.Security.Debug = true
	require.NoError(t, Setup(cfg))
	require.Equal(t, log.DebugLevel, log.GetLevel())

	log.Debug("refresh scheduled")
	require.Contains(t, console.String(), "refresh scheduled")
}

func TestSetupRedactsSecrets(t *testing.T) {
	console := captureConsole(t)
	require.NoError(t, Setup(config.Default()))

	log.WithFields(log.Fields{
		"refresh_token": "R1",
		"Authorization": "Bearer A1",
		"path":          "/auth/refresh",
	}).Warn("refresh failed")

	out := console.String()
	require.NotContains(t, out, "R1")
	require.NotContains(t, out, "Bearer A1")
	require.Contains(t, out, Redacted)
	require.Contains(t, out, "/auth/refresh")
}
