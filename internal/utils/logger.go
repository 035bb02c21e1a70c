package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// LogRetentionDays bounds how long rotated log files are kept.
	LogRetentionDays = 7
)

// LogCfg configures the file and console outputs of a Logger.
type LogCfg struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
	LogDir   string `yaml:"log_dir" json:"log_dir"`
	LogFile  string `yaml:"log_file" json:"log_file"`
	// Quiet discards console output; the JSON file is still written.
	Quiet bool `yaml:"quiet" json:"quiet"`
}

// TaggedTextHandler renders console records as "[time] [LEVEL] msg" or, for
// messages prefixed with a known module tag, "[time] [Tag] msg" in the tag color.
type TaggedTextHandler struct {
	writer io.Writer
	level  slog.Level
	mu     sync.Mutex
}

var (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

var tagColors = map[string]string{
	"[Bootstrap]":     "\x1b[96m",
	"[HTTP]":          "\x1b[95m",
	"[WebSocket]":     "\x1b[92m",
	"[Hub]":           "\x1b[94m",
	"[Auth]":          "\x1b[91m",
	"[Reaper]":        "\x1b[33m",
	"[Storage]":       "\x1b[97m",
	"[Config]":        "\x1b[96m",
	"[EventBus]":      "\x1b[35m",
	"[OBSERVABILITY]": "\x1b[90m",
}

func (h *TaggedTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *TaggedTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")

	var levelStr, levelColor string
	switch {
	case r.Level < slog.LevelInfo:
		levelStr, levelColor = "DEBUG", colorDebug
	case r.Level < slog.LevelWarn:
		levelStr, levelColor = "INFO", colorInfo
	case r.Level < slog.LevelError:
		levelStr, levelColor = "WARN", colorWarn
	default:
		levelStr, levelColor = "ERROR", colorError
	}

	msg := r.Message
	moduleColor := ""
	if strings.HasPrefix(msg, "[") {
		if end := strings.Index(msg, "]"); end > 0 {
			moduleColor = tagColors[msg[:end+1]]
		}
	}

	var output string
	if moduleColor != "" && r.Level < slog.LevelWarn {
		output = fmt.Sprintf("%s[%s]%s %s%s%s",
			colorTime, timeStr, colorReset,
			moduleColor, msg, colorReset)
	} else {
		output = fmt.Sprintf("%s[%s]%s %s[%s]%s %s",
			colorTime, timeStr, colorReset,
			levelColor, levelStr, colorReset,
			msg)
	}

	if r.NumAttrs() > 0 {
		output += " {"
		r.Attrs(func(a slog.Attr) bool {
			output += fmt.Sprintf(" %s=%v", a.Key, a.Value)
			return true
		})
		output += " }"
	}
	output += "\n"

	_, err := h.writer.Write([]byte(output))
	return err
}

func (h *TaggedTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *TaggedTextHandler) WithGroup(name string) slog.Handler {
	return h
}

// Logger writes JSON records to a daily-rotated file and tagged text to stdout.
type Logger struct {
	config      *LogCfg
	level       slog.Level
	jsonLogger  *slog.Logger
	textLogger  *slog.Logger
	logFile     *os.File
	currentDate string
	mu          sync.RWMutex
	ticker      *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
}

// ParseLevel maps a config level string to a slog.Level, defaulting to info.
func ParseLevel(configLevel string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(configLevel)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates the log directory and file and starts the rotation checker.
func NewLogger(config *LogCfg) (*Logger, error) {
	if config == nil {
		return nil, fmt.Errorf("log config is required")
	}
	if config.LogFile == "" {
		config.LogFile = "server.log"
	}
	if config.LogDir == "" {
		config.LogDir = "data/logs"
	}
	if err := os.MkdirAll(config.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	logPath := filepath.Join(config.LogDir, config.LogFile)
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	level := ParseLevel(config.LogLevel)

	var console io.Writer = os.Stdout
	if config.Quiet {
		console = io.Discard
	}

	logger := &Logger{
		config:      config,
		level:       level,
		jsonLogger:  slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})),
		textLogger:  slog.New(&TaggedTextHandler{writer: console, level: level}),
		logFile:     file,
		currentDate: time.Now().Format("2006-01-02"),
		stopCh:      make(chan struct{}),
	}

	logger.startRotationChecker()
	return logger, nil
}

func (l *Logger) startRotationChecker() {
	l.ticker = time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-l.ticker.C:
				l.checkAndRotate()
			case <-l.stopCh:
				return
			}
		}
	}()
}

func (l *Logger) checkAndRotate() {
	today := time.Now().Format("2006-01-02")
	l.mu.RLock()
	current := l.currentDate
	l.mu.RUnlock()
	if today != current {
		l.rotateLogFile(today)
		l.cleanOldLogs()
	}
}

func (l *Logger) rotateLogFile(newDate string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logFile.Close()
	}

	logDir := l.config.LogDir
	currentLogPath := filepath.Join(logDir, l.config.LogFile)
	baseFileName := strings.TrimSuffix(l.config.LogFile, filepath.Ext(l.config.LogFile))
	ext := filepath.Ext(l.config.LogFile)
	archivedLogPath := filepath.Join(logDir, fmt.Sprintf("%s-%s%s", baseFileName, l.currentDate, ext))

	if _, err := os.Stat(currentLogPath); err == nil {
		if err := os.Rename(currentLogPath, archivedLogPath); err != nil {
			l.textLogger.Error("rename log file failed", slog.String("error", err.Error()))
		}
	}

	file, err := os.OpenFile(currentLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.textLogger.Error("create log file failed", slog.String("error", err.Error()))
		return
	}

	l.logFile = file
	l.currentDate = newDate
	l.jsonLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: l.level}))
	l.textLogger.Info("log file rotated", slog.String("new_date", newDate))
}

func (l *Logger) cleanOldLogs() {
	logDir := l.config.LogDir

	entries, err := os.ReadDir(logDir)
	if err != nil {
		l.textLogger.Error("read log dir failed", slog.String("error", err.Error()))
		return
	}

	cutoffDate := time.Now().AddDate(0, 0, -LogRetentionDays)
	baseFileName := strings.TrimSuffix(l.config.LogFile, filepath.Ext(l.config.LogFile))
	ext := filepath.Ext(l.config.LogFile)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		if !strings.HasPrefix(fileName, baseFileName+"-") || !strings.HasSuffix(fileName, ext) {
			continue
		}
		dateStr := strings.TrimSuffix(strings.TrimPrefix(fileName, baseFileName+"-"), ext)
		fileDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		if fileDate.Before(cutoffDate) {
			if err := os.Remove(filepath.Join(logDir, fileName)); err != nil {
				l.textLogger.Error("remove old log failed",
					slog.String("file", fileName),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Close stops rotation and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	l.closeOnce.Do(func() {
		if l.ticker != nil {
			l.ticker.Stop()
		}
		close(l.stopCh)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.logFile != nil {
			err = l.logFile.Close()
		}
	})
	return err
}

func (l *Logger) log(level slog.Level, msg string, fields ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var attrs []slog.Attr
	if len(fields) > 0 && fields[0] != nil {
		if fieldsMap, ok := fields[0].(map[string]interface{}); ok {
			keys := make([]string, 0, len(fieldsMap))
			for k := range fieldsMap {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				attrs = append(attrs, slog.Any(k, fieldsMap[k]))
			}
		} else {
			attrs = append(attrs, slog.Any("fields", fields[0]))
		}
	}

	ctx := context.Background()
	l.jsonLogger.LogAttrs(ctx, level, msg, attrs...)
	l.textLogger.LogAttrs(ctx, level, msg, attrs...)
}

func containsFormatPlaceholders(s string) bool {
	return strings.Contains(s, "%")
}

func (l *Logger) logf(level slog.Level, msg string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	if len(args) > 0 && containsFormatPlaceholders(msg) {
		l.log(level, fmt.Sprintf(msg, args...))
		return
	}
	l.log(level, msg, args...)
}

// Debug logs at debug level. Printf-style when msg carries verbs, otherwise the
// first arg may be a map of structured fields.
func (l *Logger) Debug(msg string, args ...interface{}) { l.logf(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...interface{}) { l.logf(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...interface{}) { l.logf(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...interface{}) { l.logf(slog.LevelError, msg, args...) }

// FormatLog prefixes message with a single "[tag]" unless it already starts with one.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" {
		return message
	}
	if strings.HasPrefix(message, "[") {
		return message
	}
	return fmt.Sprintf("[%s] %s", tag, message)
}

// DebugTag logs a tagged debug message. Nil receivers are ignored.
func (l *Logger) DebugTag(tag, msg string, args ...interface{}) {
	if l == nil {
		return
	}
	l.logf(slog.LevelDebug, FormatLog(tag, msg), args...)
}

// InfoTag logs a tagged info message. Nil receivers are ignored.
func (l *Logger) InfoTag(tag, msg string, args ...interface{}) {
	if l == nil {
		return
	}
	l.logf(slog.LevelInfo, FormatLog(tag, msg), args...)
}

// WarnTag logs a tagged warning. Nil receivers are ignored.
func (l *Logger) WarnTag(tag, msg string, args ...interface{}) {
	if l == nil {
		return
	}
	l.logf(slog.LevelWarn, FormatLog(tag, msg), args...)
}

// ErrorTag logs a tagged error. Nil receivers are ignored.
func (l *Logger) ErrorTag(tag, msg string, args ...interface{}) {
	if l == nil {
		return
	}
	l.logf(slog.LevelError, FormatLog(tag, msg), args...)
}

// Slog exposes the console slog logger for structured integrations.
func (l *Logger) Slog() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.textLogger
}
