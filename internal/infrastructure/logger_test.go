package infrastructure

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rs/zerolog"
)

func TestNewFileLogger_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "greeter.log")

	logger, closeLog, err := NewFileLogger(path, zerolog.InfoLevel)
	be.Err(t, err, nil)
	logger.Info().Str("account", "A").Msg("dispatch started")
	logger.Debug().Msg("hidden")
	be.Err(t, closeLog(), nil)

	logger, closeLog, err = NewFileLogger(path, zerolog.InfoLevel)
	be.Err(t, err, nil)
	PlatformLogger(logger, "A", "Client").Warnf("reconnecting in %d", 5)
	be.Err(t, closeLog(), nil)

	data, err := os.ReadFile(path)
	be.Err(t, err, nil)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	be.Equal(t, len(lines), 2)
	be.True(t, strings.Contains(lines[0], `"message":"dispatch started"`))
	be.True(t, strings.Contains(lines[0], `"app":"greeter"`))
	be.True(t, strings.Contains(lines[1], `"module":"Client"`))
	be.True(t, strings.Contains(lines[1], "reconnecting in 5"))
}
