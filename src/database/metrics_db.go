package database

import (
	"context"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

const metricsBatchSize = 200

type MetricsDatabase interface {
	WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error)
	WriteMetrics(ctx context.Context, metrics []datamodels.Metric) (int64, error)
	GetRunMetrics(ctx context.Context, runId string, metricName string) ([]datamodels.Metric, error)
}

func (a *databaseImplementation) WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error) {
	result := a.gormDb.WithContext(ctx).Create(&metric)
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "writing metric %s for run %s", metric.MetricName, metric.RunId)
	}
	return result.RowsAffected, nil
}

func (a *databaseImplementation) WriteMetrics(ctx context.Context, metrics []datamodels.Metric) (int64, error) {
	if len(metrics) == 0 {
		return 0, nil
	}
	result := a.gormDb.WithContext(ctx).CreateInBatches(&metrics, metricsBatchSize)
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "writing %d metrics", len(metrics))
	}
	return result.RowsAffected, nil
}

// GetRunMetrics returns a run's metrics in time order. An empty metricName
// returns every metric of the run.
func (a *databaseImplementation) GetRunMetrics(ctx context.Context, runId string, metricName string) ([]datamodels.Metric, error) {
	var metrics []datamodels.Metric
	query := a.gormDb.WithContext(ctx).Where("run_id = ?", runId)
	if metricName != "" {
		query = query.Where("metric_name = ?", metricName)
	}
	if err := query.Order("metric_time asc, id asc").Find(&metrics).Error; err != nil {
		return nil, errors.Wrapf(err, "reading metrics for run %s", runId)
	}
	return metrics, nil
}
