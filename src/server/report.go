package server

import (
	"sync"
	"time"

	"macrocopilot/src/backtest"
	"macrocopilot/src/datamodels"
)

type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// RunReport is the JSON view of a finished pipeline run.
type RunReport struct {
	RunId            string                        `json:"run_id"`
	GeneratedAt      time.Time                     `json:"generated_at"`
	FeatureColumns   []string                      `json:"feature_columns"`
	FeatureRows      int                           `json:"feature_rows"`
	LabelCounts      map[datamodels.Regime]int     `json:"label_counts"`
	Evaluation       *datamodels.EvaluationMetrics `json:"evaluation"`
	Periods          []datamodels.PeriodRecord     `json:"periods"`
	StrategyEquity   []SeriesPoint                 `json:"strategy_equity"`
	BenchmarkEquity  []SeriesPoint                 `json:"benchmark_equity"`
	StrategySummary  datamodels.SummaryStatistics  `json:"strategy_summary"`
	BenchmarkSummary datamodels.SummaryStatistics  `json:"benchmark_summary"`
}

func NewRunReport(result *backtest.RunResult) RunReport {
	report := RunReport{
		RunId:            result.RunId,
		GeneratedAt:      time.Now().UTC(),
		Evaluation:       result.Evaluation,
		Periods:          result.Periods,
		StrategyEquity:   seriesPoints(result.StrategyEquity),
		BenchmarkEquity:  seriesPoints(result.BenchmarkEquity),
		StrategySummary:  result.StrategySummary,
		BenchmarkSummary: result.BenchmarkSummary,
	}
	if result.Features != nil {
		report.FeatureColumns = result.Features.Columns
		report.FeatureRows = result.Features.Len()
	}
	if result.Labels != nil {
		report.LabelCounts = result.Labels.Counts()
	}
	return report
}

func seriesPoints(s *datamodels.Series) []SeriesPoint {
	points := make([]SeriesPoint, s.Len())
	for i := range points {
		points[i] = SeriesPoint{Timestamp: s.Index[i], Value: s.Values[i]}
	}
	return points
}

// ReportStore keeps the most recent run report.
type ReportStore struct {
	mu     sync.RWMutex
	latest *RunReport
}

func NewReportStore() *ReportStore {
	return &ReportStore{}
}

func (r *ReportStore) Publish(result *backtest.RunResult) {
	report := NewRunReport(result)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = &report
}

func (r *ReportStore) Latest() (RunReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return RunReport{}, false
	}
	return *r.latest, true
}
