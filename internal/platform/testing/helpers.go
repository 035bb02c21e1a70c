package testing

import (
	"testing"

	"tensosense-server-go/internal/platform/config"
	"tensosense-server-go/internal/platform/logging"
)

// SetupTestConfig returns defaults bound to loopback with logs under a temp dir.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.Port = 18000
	cfg.Server.StaticDir = ""
	cfg.Log = config.LogConfig{
		Level: "debug",
		Dir:   t.TempDir(),
		File:  "test.log",
		Quiet: true,
	}
	cfg.Storage.Dir = t.TempDir()
	cfg.Auth.BcryptCost = 4

	return cfg
}

func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	cfg := SetupTestConfig(t)
	logger, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
		Quiet:    cfg.Log.Quiet,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	return logger
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}
