package logging

import (
	"fmt"
	"log/slog"

	"tensosense-server-go/internal/utils"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	Quiet    bool
}

// Logger provides access to both slog and the tagged logging API.
type Logger struct {
	tagged *utils.Logger
}

// New creates a new Logger instance backed by the tagged utils logger.
func New(cfg Config) (*Logger, error) {
	logCfg := &utils.LogCfg{
		LogLevel: cfg.Level,
		LogDir:   cfg.Dir,
		LogFile:  cfg.Filename,
		Quiet:    cfg.Quiet,
	}
	tagged, err := utils.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &Logger{tagged: tagged}, nil
}

// Tagged exposes the underlying tagged logger used by domain packages.
func (l *Logger) Tagged() *utils.Logger {
	if l == nil {
		return nil
	}
	return l.tagged
}

// Slog exposes the structured logger for new integrations.
func (l *Logger) Slog() *slog.Logger {
	if l == nil || l.tagged == nil {
		return slog.Default()
	}
	return l.tagged.Slog()
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.tagged.Close()
}
