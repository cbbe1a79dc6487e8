package backtest

import (
	"math"

	"github.com/montanaflynn/stats"

	"macrocopilot/src/datamodels"
)

// SummaryStats annualises a periodic return series. Undefined figures are NaN:
// everything for an empty series, volatility and Sharpe for a single period.
func SummaryStats(series *datamodels.Series, periodsPerYear int) datamodels.SummaryStatistics {
	n := series.Len()
	out := datamodels.SummaryStatistics{
		AnnReturn:   math.NaN(),
		AnnVol:      math.NaN(),
		Sharpe:      math.NaN(),
		MaxDrawdown: math.NaN(),
		Periods:     n,
	}
	if n == 0 {
		return out
	}
	ppy := float64(periodsPerYear)

	equity := EquityCurve(series).Values
	out.AnnReturn = math.Pow(equity[n-1], ppy/float64(n)) - 1

	if n > 1 {
		if sd, err := stats.StandardDeviationSample(series.Values); err == nil {
			out.AnnVol = sd * math.Sqrt(ppy)
		}
	}
	if out.AnnVol > 0 {
		out.Sharpe = out.AnnReturn / out.AnnVol
	}

	drawdowns := make([]float64, n)
	peak := math.Inf(-1)
	for i, e := range equity {
		peak = math.Max(peak, e)
		drawdowns[i] = (peak - e) / e
	}
	if dd, err := stats.Max(drawdowns); err == nil {
		out.MaxDrawdown = dd
	}
	return out
}
