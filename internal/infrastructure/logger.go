package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// NewFileLogger opens the append-only log sink. The returned close func
// flushes and closes the file.
func NewFileLogger(path string, level zerolog.Level) (zerolog.Logger, func() error, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := zerolog.New(file).Level(level).With().Timestamp().Str("app", "greeter").Logger()
	return logger, file.Close, nil
}

// PlatformLogger routes whatsmeow's internal logs into the sink, tagged per account
func PlatformLogger(logger zerolog.Logger, account, module string) waLog.Logger {
	return waLog.Zerolog(logger.With().Str("account", account).Str("module", module).Logger())
}
