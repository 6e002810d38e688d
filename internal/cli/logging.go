package cli

import (
	"io"
	"os"
	"strings"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/natefinch/lumberjack"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
)

// SetupLogging creates the process logger with the specified level and
// installs it as the default and context fallback logger.
// Output goes to stderr unless file.Path names a rotating log file.
// Returns the configured logger for dependency injection.
func SetupLogging(level string, file config.LogFileConfig) logger.ILogger {
	log := newLogger(level, file, os.Stderr)

	logger.SetDefaultLogger(log)
	logger.SetCtxFallbackLogger(log)

	return log
}

func newLogger(level string, file config.LogFileConfig, console io.Writer) logger.ILogger {
	log := logger.NewConsoleLogger(console)
	if file.Path != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   file.Compress,
		})
	}
	log.SetLevel(parseLevel(level))
	return log
}

// parseLevel maps a level name to the logger's levels, defaulting to info.
func parseLevel(level string) logger.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logger.LevelTrace
	case "debug":
		return logger.LevelDebug
	case "warn", "warning":
		return logger.LevelWarning
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// effectiveLevel prefers the --log-level flag over the configured level.
func effectiveLevel(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.LogLevel
}
