package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config toggles span and metric emission.
type Config struct {
	Enabled bool
	// Service is attached to every span and metric record.
	Service string
}

// ShutdownFunc tears down anything Setup installed.
type ShutdownFunc func(context.Context) error

var (
	loggerMu             sync.RWMutex
	instrumentationLog   *slog.Logger
	instrumentationState Config
)

func currentLogger() (*slog.Logger, Config) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if !instrumentationState.Enabled {
		return nil, instrumentationState
	}
	return instrumentationLog, instrumentationState
}

// Setup installs logger as the sink for spans and metrics. Records are only
// emitted while cfg.Enabled is true.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	if logger != nil && cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}

	loggerMu.Lock()
	instrumentationLog = logger
	instrumentationState = cfg
	loggerMu.Unlock()

	if logger != nil {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[OBSERVABILITY] span and metric logging enabled")
		} else {
			logger.InfoContext(ctx, "[OBSERVABILITY] disabled")
		}
	}
	return func(context.Context) error {
		loggerMu.Lock()
		instrumentationLog = nil
		instrumentationState = Config{}
		loggerMu.Unlock()
		return nil
	}, nil
}
