package utils

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, level, file string) (*Logger, string) {
	t.Helper()
	tmpDir := t.TempDir()
	logger, err := NewLogger(&LogCfg{
		LogLevel: level,
		LogDir:   tmpDir,
		LogFile:  file,
		Quiet:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger, filepath.Join(tmpDir, file)
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&LogCfg{
		LogLevel: "debug",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
		Quiet:    true,
	})

	assert.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close(), "second close must be a no-op")
}

func TestNewLogger_RequiresConfig(t *testing.T) {
	_, err := NewLogger(nil)
	assert.Error(t, err)
}

func TestLogger_InfoWithArgs(t *testing.T) {
	logger, path := newTestLogger(t, "info", "info_args.log")

	logger.Info("user %s logged in from %s", "admin", "192.168.1.1")

	content := readLog(t, path)
	assert.Contains(t, content, "admin")
	assert.Contains(t, content, "192.168.1.1")
}

func TestLogger_TaggedMessages(t *testing.T) {
	logger, path := newTestLogger(t, "debug", "tagged.log")

	logger.InfoTag("WebSocket", "session %s opened", "device_1")
	logger.WarnTag("Reaper", "evicted %d sessions", 2)
	logger.DebugTag("Hub", "broadcast delivered")

	content := readLog(t, path)
	assert.Contains(t, content, "[WebSocket] session device_1 opened")
	assert.Contains(t, content, "[Reaper] evicted 2 sessions")
	assert.Contains(t, content, "[Hub] broadcast delivered")
}

func TestLogger_NilReceiverTagMethods(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.InfoTag("Hub", "ignored")
		logger.WarnTag("Hub", "ignored")
		logger.ErrorTag("Hub", "ignored")
		logger.DebugTag("Hub", "ignored")
	})
}

func TestLogger_StructuredFields(t *testing.T) {
	logger, path := newTestLogger(t, "info", "fields.log")

	logger.Info("sample accepted", map[string]interface{}{"device": "device_1", "value": 9.8})

	content := readLog(t, path)
	assert.Contains(t, content, `"device":"device_1"`)
	assert.Contains(t, content, `"value":9.8`)
}

func TestLogger_LogLevelFiltering(t *testing.T) {
	logger, path := newTestLogger(t, "error", "filter.log")

	logger.Debug("this should not appear")
	logger.Info("this should not appear either")
	logger.Warn("this should not appear")
	logger.Error("this should appear")

	content := readLog(t, path)
	assert.NotContains(t, content, "this should not appear")
	assert.Contains(t, content, "this should appear")
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[Hub] started", FormatLog("Hub", "started"))
	assert.Equal(t, "started", FormatLog("", "started"))
	assert.Equal(t, "[Other] started", FormatLog("Hub", "[Other] started"))
}

func TestContainsFormatPlaceholders(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"hello world", false},
		{"hello %s", true},
		{"value is %d", true},
		{"%[1]s argument", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, containsFormatPlaceholders(tt.input), "input: %s", tt.input)
	}
}

func TestTaggedTextHandler_Enabled(t *testing.T) {
	handler := &TaggedTextHandler{
		writer: &strings.Builder{},
		level:  slog.LevelInfo,
	}

	assert.True(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelError))
	assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
}

func TestTaggedTextHandler_TagColor(t *testing.T) {
	var out strings.Builder
	logger := slog.New(&TaggedTextHandler{writer: &out, level: slog.LevelDebug})

	logger.Info("[Hub] ready")
	logger.Info("plain message")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], tagColors["[Hub]"])
	assert.Contains(t, lines[1], "[INFO]")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), "input: %s", tt.input)
	}
}

func TestLogger_ConcurrentLogging(t *testing.T) {
	logger, path := newTestLogger(t, "debug", "concurrent.log")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			logger.Info("concurrent message number", idx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, strings.Count(readLog(t, path), "concurrent message number"))
}
