package backtest

import (
	"log/slog"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"macrocopilot/src/allocation"
	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

const (
	StrategyReturnName    = "strategy_return"
	EqualWeightReturnName = "equal_weight_return"
)

// SimulatePeriods walks the periods shared by returns and predicted. Each
// period is weighted by the regime predicted for it and earns that period's
// realised returns. Periods with a missing return are skipped.
func SimulatePeriods(returns *datamodels.Frame, predicted *datamodels.RegimeSeries, weightFn allocation.WeightFunc) ([]datamodels.PeriodRecord, error) {
	if weightFn == nil {
		return nil, errors.New("nil weight function")
	}
	assets := append([]string(nil), returns.Columns...)
	ri, pi := datamodels.JoinIndex(returns.Index, predicted.Index)

	records := make([]datamodels.PeriodRecord, 0, len(ri))
	for k, r := range ri {
		row := returns.Row(r)
		if hasNaN(row) {
			continue
		}
		regime := predicted.Values[pi[k]]
		weights := weightFn(regime, assets)
		if len(weights) != len(assets) {
			return nil, errors.Wrapf(errors.ErrLengthMismatch, "weight function returned %d weights for %d assets in regime %s", len(weights), len(assets), regime)
		}

		strategyReturn := 0.0
		byAsset := make(map[string]float64, len(assets))
		for i, w := range weights {
			strategyReturn += w * row[i]
			byAsset[assets[i]] = w
		}
		benchmark, err := stats.Mean(row)
		if err != nil {
			return nil, errors.WrapE(errors.ErrInsufficientData, err)
		}
		records = append(records, datamodels.PeriodRecord{
			Timestamp:       returns.Index[r],
			Regime:          regime,
			Weights:         byAsset,
			StrategyReturn:  strategyReturn,
			BenchmarkReturn: benchmark,
		})
	}
	return records, nil
}

// BacktestRegimeStrategy returns the per-period strategy return over the
// periods shared by returns and predicted.
func BacktestRegimeStrategy(returns *datamodels.Frame, predicted *datamodels.RegimeSeries, weightFn allocation.WeightFunc) (*datamodels.Series, error) {
	records, err := SimulatePeriods(returns, predicted, weightFn)
	if err != nil {
		return nil, err
	}
	index := make([]time.Time, len(records))
	values := make([]float64, len(records))
	for i, rec := range records {
		index[i] = rec.Timestamp
		values[i] = rec.StrategyReturn
	}
	slog.Debug("Backtested regime strategy", "periods", len(records), "return_rows", returns.Len(), "predictions", predicted.Len())
	return datamodels.NewSeries(StrategyReturnName, index, values)
}

// EqualWeightReturns is the cross-sectional mean return of every complete row.
func EqualWeightReturns(returns *datamodels.Frame) (*datamodels.Series, error) {
	complete := returns.DropNA()
	values := make([]float64, complete.Len())
	if complete.Width() > 0 {
		for r := range values {
			mean, err := stats.Mean(complete.Row(r))
			if err != nil {
				return nil, err
			}
			values[r] = mean
		}
	}
	return datamodels.NewSeries(EqualWeightReturnName, complete.Index, values)
}

// EquityCurve compounds a return series into the growth of one unit.
func EquityCurve(series *datamodels.Series) *datamodels.Series {
	values := make([]float64, series.Len())
	equity := 1.0
	for i, r := range series.Values {
		equity *= 1 + r
		values[i] = equity
	}
	return &datamodels.Series{Name: series.Name + "_equity", Index: series.Index, Values: values}
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
