package metrics

import (
	"context"
	"log/slog"

	"macrocopilot/src/database"
	"macrocopilot/src/datamodels"
)

// MetricsWriter interface defines methods for writing metrics
type MetricsWriter interface {
	// Write delivers one run metric
	Write(ctx context.Context, metric datamodels.Metric) error
	// Close cleans up any resources
	Close() error
}

// BuildMetricsWriter fans out to every writer enabled in config. db may be nil
// unless the db writer is enabled.
func BuildMetricsWriter(config *datamodels.MetricsWriterConfig, db database.MetricsDatabase) (*MultiMetricsWriter, error) {
	if config == nil {
		slog.Warn("MetricsWriterConfig is nil, skipping metrics writer")
		return NewMultiMetricsWriter(), nil
	}
	writers := []MetricsWriter{}
	if config.WsWriter {
		writers = append(writers, NewWebSocketMetricsWriter())
	}
	if config.FileWriter {
		format, err := ParseFileFormat(config.FileFormat)
		if err != nil {
			return nil, err
		}
		metricsWriter, err := NewFileMetricsWriter(config.FilePath, format)
		if err != nil {
			return nil, err
		}
		writers = append(writers, metricsWriter)
	}
	if config.DbWriter {
		dbWriter, err := NewDBMetricsWriter(db)
		if err != nil {
			return nil, err
		}
		writers = append(writers, dbWriter)
	}
	return NewMultiMetricsWriter(writers...), nil
}
