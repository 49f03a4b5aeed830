package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/natefinch/lumberjack"
)

// Log level constants
const (
	LogLevelInfo    = "info"
	LogLevelDebug   = "debug"
	LogLevelError   = "error"
	LogLevelWarning = "warning"
)

// Log type constants
const (
	LogTypeConsole = "console"
	LogTypeFile    = "file"
)

// LogSettings holds configuration settings for logging, including log level, type and file path
type LogSettings struct {
	LogLevel   string `json:"log_level" validate:"required,oneof=info debug error warning"`
	LogType    string `json:"log_type" validate:"required,oneof=console file"`
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
}

// Validate checks that all fields in LogSettings are valid
func (s *LogSettings) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for LogSettings: %w", err)
	}

	if s.LogType == LogTypeFile {
		if s.FilePath == "" {
			return fmt.Errorf("file path is required for file logger")
		}
		if s.MaxSize < 1 || s.MaxSize > 100 {
			return fmt.Errorf("max size must be between 1 and 100 MB")
		}
		if s.MaxBackups < 1 || s.MaxBackups > 10 {
			return fmt.Errorf("max backups must be between 1 and 10")
		}
		if s.MaxAge < 1 || s.MaxAge > 365 {
			return fmt.Errorf("max age must be between 1 and 365 days")
		}
	}

	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarning:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a console text logger or a rotating JSON file logger.
// The returned closer flushes the file writer and is a no-op for the
// console.
func NewLogger(s LogSettings) (*slog.Logger, io.Closer, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: parseLevel(s.LogLevel)}

	if s.LogType == LogTypeFile {
		writer := &lumberjack.Logger{
			Filename:   s.FilePath,
			MaxSize:    s.MaxSize,
			MaxBackups: s.MaxBackups,
			MaxAge:     s.MaxAge,
			Compress:   true,
		}
		return slog.New(slog.NewJSONHandler(writer, opts)), writer, nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
