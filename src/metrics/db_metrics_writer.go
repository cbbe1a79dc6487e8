package metrics

import (
	"context"

	"macrocopilot/src/database"
	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

type DBMetricsWriter struct {
	db database.MetricsDatabase
}

func NewDBMetricsWriter(db database.MetricsDatabase) (*DBMetricsWriter, error) {
	if db == nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "db metrics writer needs a database connection")
	}
	return &DBMetricsWriter{
		db: db,
	}, nil
}

func (w *DBMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	_, err := w.db.WriteNewMetric(ctx, metric)
	return err
}

// Close leaves the connection open; it belongs to the caller.
func (w *DBMetricsWriter) Close() error {
	return nil
}
