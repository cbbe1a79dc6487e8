package datamodels

import "time"

type BaseModel struct {
	Id        int64     `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// BacktestRun is the persisted header of one pipeline run. Trained models are
// never stored; only the figures a run produced.
type BacktestRun struct {
	BaseModel
	RunId           string     `gorm:"not null;uniqueIndex" json:"run_id"`
	Status          RunStatus  `gorm:"not null;index" json:"status"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	Assets          string     `gorm:"not null" json:"assets"`
	Frequency       string     `gorm:"not null" json:"frequency"`
	FeatureRows     int        `json:"feature_rows"`
	TrainRows       int        `json:"train_rows"`
	TestRows        int        `json:"test_rows"`
	BacktestPeriods int        `json:"backtest_periods"`
	// Nullable so undefined statistics are stored as NULL.
	StrategyAnnReturn    *float64 `json:"strategy_ann_return"`
	StrategyAnnVol       *float64 `json:"strategy_ann_vol"`
	StrategySharpe       *float64 `json:"strategy_sharpe"`
	StrategyMaxDrawdown  *float64 `json:"strategy_max_drawdown"`
	BenchmarkAnnReturn   *float64 `json:"benchmark_ann_return"`
	BenchmarkAnnVol      *float64 `json:"benchmark_ann_vol"`
	BenchmarkSharpe      *float64 `json:"benchmark_sharpe"`
	BenchmarkMaxDrawdown *float64 `json:"benchmark_max_drawdown"`
	Error                string   `json:"error,omitempty"`
}

// SetSummaries copies strategy and benchmark statistics onto the run, leaving
// undefined figures nil.
func (r *BacktestRun) SetSummaries(strategy, benchmark SummaryStatistics) {
	r.StrategyAnnReturn = finiteOrNil(strategy.AnnReturn)
	r.StrategyAnnVol = finiteOrNil(strategy.AnnVol)
	r.StrategySharpe = finiteOrNil(strategy.Sharpe)
	r.StrategyMaxDrawdown = finiteOrNil(strategy.MaxDrawdown)
	r.BenchmarkAnnReturn = finiteOrNil(benchmark.AnnReturn)
	r.BenchmarkAnnVol = finiteOrNil(benchmark.AnnVol)
	r.BenchmarkSharpe = finiteOrNil(benchmark.Sharpe)
	r.BenchmarkMaxDrawdown = finiteOrNil(benchmark.MaxDrawdown)
}
