package datamodels

import (
	"encoding/json"
	"math"
	"time"
)

// SummaryStatistics are the annualised risk/return figures of a return series.
// Undefined values are NaN.
type SummaryStatistics struct {
	AnnReturn   float64 `json:"ann_return"`
	AnnVol      float64 `json:"ann_vol"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Periods     int     `json:"periods"`
}

// MarshalJSON writes undefined figures as null; encoding/json rejects NaN.
func (s SummaryStatistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AnnReturn   *float64 `json:"ann_return"`
		AnnVol      *float64 `json:"ann_vol"`
		Sharpe      *float64 `json:"sharpe"`
		MaxDrawdown *float64 `json:"max_drawdown"`
		Periods     int      `json:"periods"`
	}{
		AnnReturn:   finiteOrNil(s.AnnReturn),
		AnnVol:      finiteOrNil(s.AnnVol),
		Sharpe:      finiteOrNil(s.Sharpe),
		MaxDrawdown: finiteOrNil(s.MaxDrawdown),
		Periods:     s.Periods,
	})
}

// UnmarshalJSON reads null figures back as NaN.
func (s *SummaryStatistics) UnmarshalJSON(data []byte) error {
	var raw struct {
		AnnReturn   *float64 `json:"ann_return"`
		AnnVol      *float64 `json:"ann_vol"`
		Sharpe      *float64 `json:"sharpe"`
		MaxDrawdown *float64 `json:"max_drawdown"`
		Periods     int      `json:"periods"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.AnnReturn = nilOrNaN(raw.AnnReturn)
	s.AnnVol = nilOrNaN(raw.AnnVol)
	s.Sharpe = nilOrNaN(raw.Sharpe)
	s.MaxDrawdown = nilOrNaN(raw.MaxDrawdown)
	s.Periods = raw.Periods
	return nil
}

func finiteOrNil(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func nilOrNaN(x *float64) float64 {
	if x == nil {
		return math.NaN()
	}
	return *x
}

// PeriodRecord is what happened in one backtest period.
type PeriodRecord struct {
	Timestamp       time.Time          `json:"timestamp"`
	Regime          Regime             `json:"regime"`
	Weights         map[string]float64 `json:"weights"`
	StrategyReturn  float64            `json:"strategy_return"`
	BenchmarkReturn float64            `json:"benchmark_return"`
}

type MetricGeneratorType string

const (
	MetricGeneratorTypeFeatures   MetricGeneratorType = "features"
	MetricGeneratorTypeClassifier MetricGeneratorType = "classifier"
	MetricGeneratorTypeBacktest   MetricGeneratorType = "backtest"
	MetricGeneratorTypeSummary    MetricGeneratorType = "summary"
)

const (
	MetricNamePeriod           = "period"
	MetricNameEvaluation       = "evaluation"
	MetricNameFeatureTable     = "feature_table"
	MetricNameStrategySummary  = "strategy_summary"
	MetricNameBenchmarkSummary = "benchmark_summary"
)

// Metric is one record emitted by a pipeline run. MetricValue holds the JSON
// encoding of the payload (a PeriodRecord, SummaryStatistics, ...).
type Metric struct {
	BaseModel
	RunId               string              `gorm:"not null;index" json:"run_id"`
	MetricGeneratorName string              `gorm:"not null;index" json:"metric_generator_name"`
	MetricGeneratorType MetricGeneratorType `gorm:"not null;index" json:"metric_generator_type"`
	MetricTime          time.Time           `gorm:"not null;index" json:"metric_time"`
	MetricName          string              `gorm:"not null;index" json:"metric_name"`
	MetricValue         []byte              `gorm:"not null;type:json" json:"metric_value"`
}

// NewMetric encodes value as JSON into a Metric.
func NewMetric(runId, generatorName string, generatorType MetricGeneratorType, metricTime time.Time, name string, value any) (Metric, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Metric{}, err
	}
	return Metric{
		RunId:               runId,
		MetricGeneratorName: generatorName,
		MetricGeneratorType: generatorType,
		MetricTime:          metricTime,
		MetricName:          name,
		MetricValue:         raw,
	}, nil
}
