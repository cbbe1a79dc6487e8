package features

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/montanaflynn/stats"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

const (
	RollingStdWindow     = 4
	RollingStdMinPeriods = 3
)

// BuildMacroFeatures derives, for every macro column, lags 1..lags, a first
// difference and a rolling sample standard deviation. The raw columns are not
// carried over, so the result has Width()*(lags+2) columns. Rows where any
// derived value is unresolved are dropped.
func BuildMacroFeatures(macro *datamodels.Frame, lags int) (*datamodels.Frame, error) {
	if lags < 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "lags must be >= 0, got %d", lags)
	}
	if !macro.IsSorted() {
		slog.Debug("Macro frame not sorted by time, sorting before shifting", "frame", macro.Name)
	}
	sorted := macro.Sorted()

	columns := make([]string, 0, sorted.Width()*(lags+2))
	values := make([][]float64, 0, sorted.Width()*(lags+2))
	for c, col := range sorted.Columns {
		src := sorted.Values[c]
		for lag := 1; lag <= lags; lag++ {
			columns = append(columns, fmt.Sprintf("%s_lag%d", col, lag))
			values = append(values, Shift(src, lag))
		}
		columns = append(columns, col+"_chg")
		values = append(values, Diff(src))

		rollStd, err := RollingStd(src, RollingStdWindow, RollingStdMinPeriods)
		if err != nil {
			return nil, errors.Wrapf(err, "rolling std of %s", col)
		}
		columns = append(columns, col+"_roll_std")
		values = append(values, rollStd)
	}

	out, err := datamodels.NewFrame("macro_features", sorted.Index, columns, values)
	if err != nil {
		return nil, err
	}
	out = out.DropNA()
	slog.Debug("Built macro features", "input_rows", sorted.Len(), "output_rows", out.Len(), "columns", out.Width())
	return out, nil
}

// Shift moves values down by n positions, filling the head with NaN.
func Shift(vals []float64, n int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		if i-n < 0 || i-n >= len(vals) {
			out[i] = math.NaN()
			continue
		}
		out[i] = vals[i-n]
	}
	return out
}

// Diff returns vals[i] - vals[i-1], NaN for the first row.
func Diff(vals []float64) []float64 {
	prev := Shift(vals, 1)
	out := make([]float64, len(vals))
	for i := range vals {
		out[i] = vals[i] - prev[i]
	}
	return out
}

// RollingStd computes the sample standard deviation over a trailing window,
// emitting a value only when the window holds at least minPeriods observations.
func RollingStd(vals []float64, window, minPeriods int) ([]float64, error) {
	if window <= 0 || minPeriods <= 0 || minPeriods > window {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "invalid rolling window %d with min periods %d", window, minPeriods)
	}
	out := make([]float64, len(vals))
	for i := range vals {
		out[i] = math.NaN()
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		obs := make([]float64, 0, window)
		for _, v := range vals[start : i+1] {
			if !math.IsNaN(v) {
				obs = append(obs, v)
			}
		}
		if len(obs) < minPeriods {
			continue
		}
		sd, err := stats.StandardDeviationSample(obs)
		if err != nil {
			return nil, err
		}
		out[i] = sd
	}
	return out, nil
}
