package database

import (
	"context"
	"log/slog"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

// RunStatusChannel is the postgres NOTIFY channel carrying run status changes.
const RunStatusChannel = "backtest_run_status"

type RunsDatabase interface {
	CreateRun(ctx context.Context, run *datamodels.BacktestRun) error
	UpdateRun(ctx context.Context, run *datamodels.BacktestRun) error
	GetRun(ctx context.Context, runId string) (*datamodels.BacktestRun, error)
	ListRuns(ctx context.Context, limit int) ([]datamodels.BacktestRun, error)
}

func (a *databaseImplementation) CreateRun(ctx context.Context, run *datamodels.BacktestRun) error {
	if err := a.gormDb.WithContext(ctx).Create(run).Error; err != nil {
		return errors.Wrapf(err, "creating run %s", run.RunId)
	}
	a.notifyStatus(run)
	return nil
}

func (a *databaseImplementation) UpdateRun(ctx context.Context, run *datamodels.BacktestRun) error {
	if err := a.gormDb.WithContext(ctx).Save(run).Error; err != nil {
		return errors.Wrapf(err, "updating run %s", run.RunId)
	}
	a.notifyStatus(run)
	return nil
}

func (a *databaseImplementation) GetRun(ctx context.Context, runId string) (*datamodels.BacktestRun, error) {
	var run datamodels.BacktestRun
	if err := a.gormDb.WithContext(ctx).Where("run_id = ?", runId).First(&run).Error; err != nil {
		return nil, errors.Wrapf(err, "reading run %s", runId)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (a *databaseImplementation) ListRuns(ctx context.Context, limit int) ([]datamodels.BacktestRun, error) {
	var runs []datamodels.BacktestRun
	query := a.gormDb.WithContext(ctx).Order("started_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	return runs, nil
}

// SubscribeRunStatus streams status changes of one run. The returned func
// unsubscribes and closes the channel.
func (a *databaseImplementation) SubscribeRunStatus(ctx context.Context, runId string) (<-chan string, func() error, error) {
	subscriberId := a.notificationManager.NewSubscriber(ctx)
	ch, err := a.notificationManager.Subscribe(ctx, subscriberId, RunStatusChannel, runId)
	if err != nil {
		return nil, nil, err
	}
	unsubscribe := func() error {
		return a.notificationManager.Unsubscribe(RunStatusChannel, subscriberId, runId)
	}
	return ch, unsubscribe, nil
}

// status notifications are best effort; the row is already committed
func (a *databaseImplementation) notifyStatus(run *datamodels.BacktestRun) {
	if err := Notify(a.gormDb, RunStatusChannel, run.RunId, string(run.Status)); err != nil {
		slog.Warn("Failed to notify run status", "run_id", run.RunId, "status", run.Status, "error", err)
	}
}
