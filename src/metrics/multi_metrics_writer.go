package metrics

import (
	"context"
	"log/slog"
	"sync"

	"macrocopilot/src/datamodels"
)

// MultiMetricsWriter writes metrics to multiple destinations
type MultiMetricsWriter struct {
	writers []MetricsWriter
	mu      sync.RWMutex
}

func NewMultiMetricsWriter(writers ...MetricsWriter) *MultiMetricsWriter {
	return &MultiMetricsWriter{
		writers: writers,
	}
}

func (w *MultiMetricsWriter) AddWriter(writer MetricsWriter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writers = append(w.writers, writer)
}

// WebsocketWriter returns the first websocket writer, or nil.
func (w *MultiMetricsWriter) WebsocketWriter() *WebsocketMetricsWriter {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, writer := range w.writers {
		if ws, ok := writer.(*WebsocketMetricsWriter); ok {
			return ws
		}
	}
	return nil
}

func (w *MultiMetricsWriter) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.writers)
}

// Write tries every writer and returns the last error seen.
func (w *MultiMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	slog.Debug("MultiMetricsWriter writing metric", "run_id", metric.RunId, "name", metric.MetricName, "time", metric.MetricTime)

	var lastErr error
	for _, writer := range w.writers {
		if err := writer.Write(ctx, metric); err != nil {
			lastErr = err
			slog.Error("Failed to write metrics",
				"writer", writer,
				"error", err)
		}
	}
	return lastErr
}

func (w *MultiMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for _, writer := range w.writers {
		if err := writer.Close(); err != nil {
			lastErr = err
			slog.Error("Failed to close metrics writer",
				"writer", writer,
				"error", err)
		}
	}
	return lastErr
}
