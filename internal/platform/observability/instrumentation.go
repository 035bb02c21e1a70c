package observability

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

// StartSpan records a lightweight span lifecycle around an operation.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, _ := currentLogger()
	if logger == nil {
		return ctx, func(error) {}
	}

	start := time.Now()
	logger.LogAttrs(ctx, slog.LevelDebug, "obs span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)

	return ctx, func(err error) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "obs span end", attrs...)
	}
}

// RecordMetric emits a best-effort metric datapoint via the configured logger.
// Labels are emitted in key order so identical datapoints render identically.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, _ := currentLogger()
	if logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}

// Count is RecordMetric with a value of 1.
func Count(ctx context.Context, name string, labels map[string]string) {
	RecordMetric(ctx, name, 1, labels)
}
