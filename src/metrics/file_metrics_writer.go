package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

// ParseFileFormat accepts csv or json; empty means csv.
func ParseFileFormat(s string) (FileFormat, error) {
	switch FileFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidConfig, "unknown metrics file format %q", s)
	}
}

var csvHeaders = []string{"run_id", "metric_generator_name", "metric_generator_type", "metric_time", "metric_name", "metric_value"}

// FileMetricsWriter writes metrics to local files in CSV or JSON lines format,
// one file per run and generator.
type FileMetricsWriter struct {
	dateId     string
	baseDir    string
	files      map[string]*os.File
	csvWriters map[string]*csv.Writer
	fileFormat FileFormat
	mu         sync.Mutex
}

func NewFileMetricsWriter(baseDir string, format FileFormat) (*FileMetricsWriter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create metrics directory %s", baseDir)
	}
	now := time.Now()
	todaysDateId := fmt.Sprintf("%d%02d%02d", now.Year(), now.Month(), now.Day())

	return &FileMetricsWriter{
		dateId:     todaysDateId,
		baseDir:    baseDir,
		files:      make(map[string]*os.File),
		csvWriters: make(map[string]*csv.Writer),
		fileFormat: format,
	}, nil
}

// Path is the file metrics of the given run and generator are written to.
func (w *FileMetricsWriter) Path(runId, generatorName string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s.%s", w.writerId(runId, generatorName), w.fileFormat))
}

func (w *FileMetricsWriter) writerId(runId, generatorName string) string {
	if runId == "" {
		return fmt.Sprintf("%s_%s", w.dateId, generatorName)
	}
	return fmt.Sprintf("%s_%s_%s", w.dateId, generatorName, runId)
}

func (w *FileMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	writerId := w.writerId(metric.RunId, metric.MetricGeneratorName)
	file, ok := w.files[writerId]
	if !ok {
		filename := w.Path(metric.RunId, metric.MetricGeneratorName)
		_, statErr := os.Stat(filename)
		isNew := os.IsNotExist(statErr)
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrapf(err, "failed to open metrics file %s", filename)
		}
		if w.fileFormat == FormatCSV {
			csvWriter := csv.NewWriter(f)
			w.csvWriters[writerId] = csvWriter
			if isNew {
				if err := csvWriter.Write(csvHeaders); err != nil {
					f.Close()
					return errors.Wrap(err, "failed to write CSV headers")
				}
				csvWriter.Flush()
			}
		}
		w.files[writerId] = f
		file = f
	}

	switch w.fileFormat {
	case FormatJSON:
		jsonBytes, err := json.Marshal(metric)
		if err != nil {
			return errors.Wrap(err, "failed to marshal metric to JSON")
		}
		if _, err := file.Write(append(jsonBytes, '\n')); err != nil {
			return errors.Wrap(err, "failed to write JSON metrics")
		}
	case FormatCSV:
		csvWriter := w.csvWriters[writerId]
		row := []string{
			metric.RunId,
			metric.MetricGeneratorName,
			string(metric.MetricGeneratorType),
			metric.MetricTime.Format(time.RFC3339),
			metric.MetricName,
			string(metric.MetricValue),
		}
		if err := csvWriter.Write(row); err != nil {
			return errors.Wrap(err, "failed to write CSV row")
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return errors.Wrap(err, "error flushing CSV writer")
		}
	}

	return nil
}

func (w *FileMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for source, file := range w.files {
		if w.fileFormat == FormatCSV {
			if writer := w.csvWriters[source]; writer != nil {
				writer.Flush()
				if err := writer.Error(); err != nil {
					slog.Error("Failed to flush CSV writer", "source", source, "error", err)
					lastErr = err
				}
			}
		}
		if err := file.Close(); err != nil {
			slog.Error("Failed to close metrics file", "source", source, "error", err)
			lastErr = err
		}
		delete(w.files, source)
		delete(w.csvWriters, source)
	}
	return lastErr
}

// WriteSeriesCSV writes one or more aligned series as a date-indexed CSV.
// All series must share the first series' index.
func WriteSeriesCSV(path string, series ...*datamodels.Series) error {
	if len(series) == 0 {
		return errors.Wrap(errors.ErrInsufficientData, "no series to write")
	}
	for _, s := range series[1:] {
		if s.Len() != series[0].Len() {
			return errors.Wrapf(errors.ErrLengthMismatch, "series %s has %d rows, %s has %d", s.Name, s.Len(), series[0].Name, series[0].Len())
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	header := []string{"date"}
	for _, s := range series {
		header = append(header, s.Name)
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for r, ts := range series[0].Index {
		row := []string{ts.Format("2006-01-02")}
		for _, s := range series {
			row = append(row, strconv.FormatFloat(s.Values[r], 'g', -1, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return f.Close()
}
