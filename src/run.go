package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"macrocopilot/src/backtest"
	"macrocopilot/src/config"
	"macrocopilot/src/database"
	"macrocopilot/src/datamodels"
	"macrocopilot/src/features"
	"macrocopilot/src/feeds"
	"macrocopilot/src/metrics"
	"macrocopilot/src/regimes"
	"macrocopilot/src/server"
	"macrocopilot/src/storage"
	"macrocopilot/src/utils/errors"
	"macrocopilot/src/utils/general"
)

// runCopilot loads the inputs, runs the pipeline and writes every configured
// output. With serve it blocks until ctx is done.
func runCopilot(ctx context.Context, cfg *datamodels.CopilotConfig, serve bool) error {
	var db database.CopilotDatabase
	if cfg.DatabaseConfig.Enabled {
		var err error
		db, err = database.NewDBConnection(cfg.DatabaseConfig)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return errors.Wrap(err, "migrating tables")
		}
	}

	writer, err := metrics.BuildMetricsWriter(cfg.Output.MetricsWriter, db)
	if err != nil {
		return err
	}
	defer writer.Close()

	var srv *server.Server
	if serve {
		srv = startServer(ctx, cfg, writer, db)
	}

	result, err := runAndRecord(ctx, cfg, writer, db)
	if err != nil {
		return err
	}
	if srv != nil {
		srv.Reports().Publish(result)
	}

	if err := writeOutputs(cfg, result); err != nil {
		return err
	}
	if cfg.StorageConfig.Bucket != "" {
		if err := uploadOutputs(ctx, cfg, result.RunId); err != nil {
			return err
		}
	}

	if srv != nil {
		slog.Info("Run finished, serving report until interrupted", "port", cfg.ServerConfig.Port)
		<-ctx.Done()
	}
	return nil
}

func startServer(ctx context.Context, cfg *datamodels.CopilotConfig, writer *metrics.MultiMetricsWriter, db database.CopilotDatabase) *server.Server {
	ws := writer.WebsocketWriter()
	if ws == nil {
		ws = metrics.NewWebSocketMetricsWriter()
		writer.AddWriter(ws)
	}
	srv := server.NewServer(cfg.ServerConfig, config.NewDefaultWSConfig()).WithMetricsWriter(ws)
	if db != nil {
		srv.WithRunStore(db)
	}
	go func() {
		if err := srv.Start(ctx); err != nil {
			slog.Error("Server failed", "error", err)
		}
	}()
	return srv
}

// runAndRecord runs the pipeline, keeping the run header in postgres current
// when a database is configured.
func runAndRecord(ctx context.Context, cfg *datamodels.CopilotConfig, writer metrics.MetricsWriter, db database.RunsDatabase) (*backtest.RunResult, error) {
	inputs, err := loadInputs(cfg)
	if err != nil {
		return nil, err
	}
	opts, err := pipelineOptions(cfg)
	if err != nil {
		return nil, err
	}
	startedAt := time.Now().UTC()
	fingerprint, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "fingerprinting config")
	}
	opts.RunId = general.NewRunId(fingerprint, startedAt)

	run := &datamodels.BacktestRun{
		RunId:     opts.RunId,
		Status:    datamodels.RunStatusRunning,
		StartedAt: startedAt,
		Assets:    strings.Join(cfg.Backtest.Assets, ","),
		Frequency: string(opts.Frequency),
	}
	if db != nil {
		if err := db.CreateRun(ctx, run); err != nil {
			return nil, err
		}
	}

	result, runErr := backtest.RunPipeline(ctx, inputs, opts, writer)

	finishedAt := time.Now().UTC()
	run.FinishedAt = &finishedAt
	if runErr != nil {
		run.Status = datamodels.RunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = datamodels.RunStatusSucceeded
		run.FeatureRows = result.Features.Len()
		run.TrainRows = result.Evaluation.TrainSize
		run.TestRows = result.Evaluation.TestSize
		run.BacktestPeriods = result.StrategyReturns.Len()
		run.SetSummaries(result.StrategySummary, result.BenchmarkSummary)
	}
	if db != nil {
		// the pipeline may have been cancelled; the final status still has to land
		if err := db.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
			slog.Error("Failed to record run status", "run_id", run.RunId, "error", err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	logResult(result)
	return result, nil
}

func loadInputs(cfg *datamodels.CopilotConfig) (backtest.PipelineInputs, error) {
	freq, err := features.ParseFrequency(cfg.Data.Frequency)
	if err != nil {
		return backtest.PipelineInputs{}, err
	}
	var start time.Time
	if cfg.Data.StartDate != "" {
		start, err = feeds.ParseDate(cfg.Data.StartDate)
		if err != nil {
			return backtest.PipelineInputs{}, errors.WrapE(errors.ErrInvalidConfig, err)
		}
	}

	macro, err := loadFrame(cfg.Data.MacroPath, "macro", cfg.Data.DateColumn, start)
	if err != nil {
		return backtest.PipelineInputs{}, err
	}

	var returns *datamodels.Frame
	if cfg.Data.PricesPath != "" {
		prices, err := loadFrame(cfg.Data.PricesPath, "prices", cfg.Data.DateColumn, start)
		if err != nil {
			return backtest.PipelineInputs{}, err
		}
		returns, err = feeds.PricesToReturns(prices, freq)
		if err != nil {
			return backtest.PipelineInputs{}, err
		}
	} else {
		returns, err = loadFrame(cfg.Data.ReturnsPath, "returns", cfg.Data.DateColumn, start)
		if err != nil {
			return backtest.PipelineInputs{}, err
		}
	}

	headlines, err := feeds.LoadTextRecords(cfg.Data.HeadlinesPath, cfg.Data.DateColumn, "")
	if err != nil {
		return backtest.PipelineInputs{}, err
	}

	slog.Info("Loaded inputs", "macro_rows", macro.Len(), "return_rows", returns.Len(), "headlines", len(headlines))
	return backtest.PipelineInputs{Macro: macro, Returns: returns, Headlines: headlines}, nil
}

func loadFrame(path, name, dateColumn string, start time.Time) (*datamodels.Frame, error) {
	builder := feeds.NewCsvFrameFeedBuilder(path).WithName(name).WithDateColumn(dateColumn)
	if !start.IsZero() {
		builder = builder.WithStartTime(start)
	}
	feed, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return feed.Load()
}

func pipelineOptions(cfg *datamodels.CopilotConfig) (backtest.PipelineOptions, error) {
	freq, err := features.ParseFrequency(cfg.Data.Frequency)
	if err != nil {
		return backtest.PipelineOptions{}, err
	}
	opts := backtest.DefaultPipelineOptions()
	opts.Frequency = freq
	opts.Lags = cfg.Features.Lags
	if len(cfg.Features.PositiveWords) > 0 {
		opts.PositiveWords = features.Lexicon(cfg.Features.PositiveWords)
	}
	if len(cfg.Features.NegativeWords) > 0 {
		opts.NegativeWords = features.Lexicon(cfg.Features.NegativeWords)
	}
	opts.GrowthColumn = cfg.Regimes.GrowthColumn
	opts.UnemploymentColumn = cfg.Regimes.UnemploymentColumn
	opts.Train = regimes.TrainOptions{
		TestSize: cfg.Regimes.TestSize,
		Seed:     cfg.Regimes.Seed,
		Classifier: regimes.NewRandomForest(regimes.ForestParams{
			NumTrees:       cfg.Regimes.NumTrees,
			MinSamplesLeaf: cfg.Regimes.MinSamplesLeaf,
			MaxDepth:       cfg.Regimes.MaxDepth,
			MaxFeatures:    cfg.Regimes.MaxFeatures,
			Seed:           cfg.Regimes.Seed,
			Workers:        cfg.Regimes.Workers,
		}),
	}
	opts.Assets = cfg.Backtest.Assets
	opts.PeriodsPerYear = cfg.Backtest.PeriodsPerYear
	return opts, nil
}

func logResult(result *backtest.RunResult) {
	for _, regime := range datamodels.AllRegimes() {
		slog.Info("Regime labels", "regime", regime, "count", result.Labels.Counts()[regime])
	}
	if expansion, ok := result.Evaluation.Report.Classes[datamodels.RegimeExpansion]; ok {
		slog.Info("Classifier test precision", "regime", datamodels.RegimeExpansion, "precision", expansion.Precision)
	} else {
		slog.Info("Classifier test precision", "regime", datamodels.RegimeExpansion, "precision", "n/a")
	}
	logSummary("Strategy", result.StrategySummary)
	logSummary("Equal weight", result.BenchmarkSummary)
}

func logSummary(name string, s datamodels.SummaryStatistics) {
	slog.Info(name+" summary",
		"ann_return", s.AnnReturn,
		"ann_vol", s.AnnVol,
		"sharpe", s.Sharpe,
		"max_drawdown", s.MaxDrawdown,
		"periods", s.Periods)
}

func writeOutputs(cfg *datamodels.CopilotConfig, result *backtest.RunResult) error {
	returnsPath := filepath.Join(cfg.Output.Dir, cfg.Output.StrategyReturnsFile)
	if err := metrics.WriteSeriesCSV(returnsPath, result.StrategyReturns, result.BenchmarkReturns); err != nil {
		return err
	}
	slog.Info("Wrote strategy returns", "path", returnsPath)

	if result.StrategyEquity.Len() == 0 {
		slog.Warn("No backtest periods, skipping equity plot")
		return nil
	}
	plotPath := filepath.Join(cfg.Output.Dir, cfg.Output.PlotFile)
	return metrics.NewEquityPlotter(plotPath).
		WithTitle("Regime strategy vs equal weight").
		WithCurve(result.StrategyEquity).
		WithCurve(result.BenchmarkEquity).
		Plot()
}

func uploadOutputs(ctx context.Context, cfg *datamodels.CopilotConfig, runId string) error {
	uploader, err := storage.NewGCSArtifactUploader(ctx, cfg.StorageConfig.Bucket, cfg.StorageConfig.Prefix)
	if err != nil {
		return err
	}
	defer uploader.Close()

	objects, err := uploader.UploadDir(ctx, runId, cfg.Output.Dir)
	if err != nil {
		return err
	}
	if mw := cfg.Output.MetricsWriter; mw != nil && mw.FileWriter {
		metricObjects, err := uploader.UploadDir(ctx, runId, mw.FilePath)
		if err != nil {
			return err
		}
		objects = append(objects, metricObjects...)
	}
	slog.Info("Uploaded run artifacts", "bucket", cfg.StorageConfig.Bucket, "objects", len(objects))
	return nil
}
