package backtest

import (
	"context"
	"log/slog"
	"time"

	"macrocopilot/src/allocation"
	"macrocopilot/src/datamodels"
	"macrocopilot/src/features"
	"macrocopilot/src/metrics"
	"macrocopilot/src/regimes"
	"macrocopilot/src/utils/errors"
)

const MetricGeneratorName = "regime_copilot"

// PipelineInputs are the already loaded tables a run works on.
type PipelineInputs struct {
	Macro     *datamodels.Frame
	Returns   *datamodels.Frame
	Headlines []datamodels.TextRecord
}

type PipelineOptions struct {
	RunId              string
	Frequency          features.Frequency
	Lags               int
	PositiveWords      features.Lexicon
	NegativeWords      features.Lexicon
	GrowthColumn       string
	UnemploymentColumn string
	Train              regimes.TrainOptions
	// Assets selects and orders the return columns; empty means all of them.
	Assets         []string
	WeightFn       allocation.WeightFunc
	PeriodsPerYear int
}

func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Frequency:          features.FrequencyQuarterly,
		Lags:               2,
		PositiveWords:      features.DefaultPositiveWords(),
		NegativeWords:      features.DefaultNegativeWords(),
		GrowthColumn:       regimes.DefaultGrowthColumn,
		UnemploymentColumn: regimes.DefaultUnemploymentColumn,
		Train:              regimes.DefaultTrainOptions(),
		WeightFn:           allocation.SimpleRegimeWeights,
		PeriodsPerYear:     4,
	}
}

// RunResult holds everything a run produced.
type RunResult struct {
	RunId            string
	Features         *datamodels.Frame
	Labels           *datamodels.RegimeSeries
	Model            *regimes.RegimeModel
	Evaluation       *datamodels.EvaluationMetrics
	Predicted        *datamodels.RegimeSeries
	Returns          *datamodels.Frame
	RegimeStats      map[datamodels.Regime]allocation.RegimeStats
	Periods          []datamodels.PeriodRecord
	StrategyReturns  *datamodels.Series
	BenchmarkReturns *datamodels.Series
	StrategyEquity   *datamodels.Series
	BenchmarkEquity  *datamodels.Series
	StrategySummary  datamodels.SummaryStatistics
	BenchmarkSummary datamodels.SummaryStatistics
}

// RunPipeline builds features and labels, trains the regime classifier,
// predicts regimes for every feature period and backtests the allocation
// against the equal-weight benchmark. Metrics go to writer when it is not nil.
func RunPipeline(ctx context.Context, inputs PipelineInputs, opts PipelineOptions, writer metrics.MetricsWriter) (*RunResult, error) {
	if inputs.Macro == nil || inputs.Returns == nil {
		return nil, errors.Wrap(errors.ErrInsufficientData, "macro and returns tables are required")
	}
	if opts.WeightFn == nil {
		opts.WeightFn = allocation.SimpleRegimeWeights
	}
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = opts.Frequency.PeriodsPerYear()
	}
	start := time.Now()
	result := &RunResult{RunId: opts.RunId}

	// features
	macro, err := features.AlignToPeriodEnd(inputs.Macro, opts.Frequency)
	if err != nil {
		return nil, err
	}
	macroFeat, err := features.BuildMacroFeatures(macro, opts.Lags)
	if err != nil {
		return nil, errors.Wrapf(err, "building macro features")
	}
	sentiment, err := features.BuildSentimentIndex(inputs.Headlines, opts.PositiveWords, opts.NegativeWords, opts.Frequency)
	if err != nil {
		return nil, errors.Wrapf(err, "building sentiment index")
	}
	result.Features, err = features.CombineMacroAndSentiment(macroFeat, sentiment)
	if err != nil {
		return nil, err
	}
	slog.Info("Built feature table", "rows", result.Features.Len(), "columns", result.Features.Width())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// regimes
	result.Labels, err = regimes.LabelMacroRegimes(macro, opts.GrowthColumn, opts.UnemploymentColumn)
	if err != nil {
		return nil, err
	}
	result.Model, result.Evaluation, err = regimes.TrainRegimeClassifier(result.Features, result.Labels, opts.Train)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.Predicted, err = regimes.PredictRegimes(result.Model, result.Features)
	if err != nil {
		return nil, err
	}

	// backtest
	result.Returns, err = alignReturns(inputs.Returns, result.Features.Index, opts.Assets)
	if err != nil {
		return nil, err
	}
	result.RegimeStats, err = allocation.EstimateRegimeStats(result.Returns, result.Labels)
	if err != nil {
		return nil, err
	}
	result.Periods, err = SimulatePeriods(result.Returns, result.Predicted, opts.WeightFn)
	if err != nil {
		return nil, err
	}
	result.StrategyReturns, err = BacktestRegimeStrategy(result.Returns, result.Predicted, opts.WeightFn)
	if err != nil {
		return nil, err
	}
	result.BenchmarkReturns, err = EqualWeightReturns(result.Returns)
	if err != nil {
		return nil, err
	}
	result.StrategyEquity = EquityCurve(result.StrategyReturns)
	result.BenchmarkEquity = EquityCurve(result.BenchmarkReturns)
	result.StrategySummary = SummaryStats(result.StrategyReturns, opts.PeriodsPerYear)
	result.BenchmarkSummary = SummaryStats(result.BenchmarkReturns, opts.PeriodsPerYear)

	if writer != nil {
		if err := writeRunMetrics(ctx, writer, result); err != nil {
			return nil, err
		}
	}
	slog.Info("Pipeline finished",
		"run_id", result.RunId,
		"periods", result.StrategyReturns.Len(),
		"strategy_ann_return", result.StrategySummary.AnnReturn,
		"benchmark_ann_return", result.BenchmarkSummary.AnnReturn,
		"elapsed", time.Since(start))
	return result, nil
}

// alignReturns restricts returns to the feature periods and the chosen assets,
// dropping periods with a missing return.
func alignReturns(returns *datamodels.Frame, index []time.Time, assets []string) (*datamodels.Frame, error) {
	selected := returns
	if len(assets) > 0 {
		var err error
		selected, err = returns.Select(assets...)
		if err != nil {
			return nil, err
		}
	}
	rows, _ := datamodels.JoinIndex(selected.Index, index)
	values := make([][]float64, selected.Width())
	for c := range values {
		values[c] = make([]float64, len(rows))
		for i, r := range rows {
			values[c][i] = selected.Values[c][r]
		}
	}
	aligned := make([]time.Time, len(rows))
	for i, r := range rows {
		aligned[i] = selected.Index[r]
	}
	frame, err := datamodels.NewFrame("returns", aligned, append([]string(nil), selected.Columns...), values)
	if err != nil {
		return nil, err
	}
	return frame.DropNA(), nil
}

func writeRunMetrics(ctx context.Context, writer metrics.MetricsWriter, result *RunResult) error {
	write := func(generatorType datamodels.MetricGeneratorType, at time.Time, name string, value any) error {
		metric, err := datamodels.NewMetric(result.RunId, MetricGeneratorName, generatorType, at, name, value)
		if err != nil {
			return errors.Wrapf(err, "encoding %s metric", name)
		}
		return writer.Write(ctx, metric)
	}

	for _, period := range result.Periods {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := write(datamodels.MetricGeneratorTypeBacktest, period.Timestamp, datamodels.MetricNamePeriod, period); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	featureTable := map[string]any{
		"rows":    result.Features.Len(),
		"columns": result.Features.Columns,
	}
	if err := write(datamodels.MetricGeneratorTypeFeatures, now, datamodels.MetricNameFeatureTable, featureTable); err != nil {
		return err
	}
	if err := write(datamodels.MetricGeneratorTypeClassifier, now, datamodels.MetricNameEvaluation, result.Evaluation); err != nil {
		return err
	}
	if err := write(datamodels.MetricGeneratorTypeSummary, now, datamodels.MetricNameStrategySummary, result.StrategySummary); err != nil {
		return err
	}
	return write(datamodels.MetricGeneratorTypeSummary, now, datamodels.MetricNameBenchmarkSummary, result.BenchmarkSummary)
}
