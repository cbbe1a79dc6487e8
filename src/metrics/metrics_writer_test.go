package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

type fakeMetricsDatabase struct {
	written []datamodels.Metric
}

func (f *fakeMetricsDatabase) WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error) {
	f.written = append(f.written, metric)
	return 1, nil
}

func (f *fakeMetricsDatabase) WriteMetrics(ctx context.Context, metrics []datamodels.Metric) (int64, error) {
	f.written = append(f.written, metrics...)
	return int64(len(metrics)), nil
}

func (f *fakeMetricsDatabase) GetRunMetrics(ctx context.Context, runId string, metricName string) ([]datamodels.Metric, error) {
	return f.written, nil
}

func TestBuildMetricsWriter(t *testing.T) {
	db := &fakeMetricsDatabase{}
	writer, err := BuildMetricsWriter(&datamodels.MetricsWriterConfig{
		WsWriter:   true,
		FileWriter: true,
		DbWriter:   true,
		FileFormat: "json",
		FilePath:   t.TempDir(),
	}, db)
	require.NoError(t, err)
	assert.Equal(t, 3, writer.Len())
	require.NotNil(t, writer.WebsocketWriter())
	assert.Equal(t, 0, writer.WebsocketWriter().NumClients())

	require.NoError(t, writer.Write(context.Background(), testMetric(t, "run-1", "period", 1)))
	require.NoError(t, writer.Close())
	require.Len(t, db.written, 1)
	assert.Equal(t, "period", db.written[0].MetricName)
}

func TestBuildMetricsWriterNilConfig(t *testing.T) {
	writer, err := BuildMetricsWriter(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, writer.Len())
	assert.Nil(t, writer.WebsocketWriter())
	assert.NoError(t, writer.Write(context.Background(), datamodels.Metric{}))
}

func TestBuildMetricsWriterDbWithoutConnection(t *testing.T) {
	_, err := BuildMetricsWriter(&datamodels.MetricsWriterConfig{DbWriter: true}, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
