package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrocopilot/src/allocation"
	"macrocopilot/src/datamodels"
	"macrocopilot/src/regimes"
	"macrocopilot/src/utils/errors"
)

func quarterEnds(n int) []time.Time {
	index := make([]time.Time, n)
	for i := range index {
		index[i] = time.Date(2010, time.Month(3*i+4), 0, 0, 0, 0, 0, time.UTC)
	}
	return index
}

func TestAlternatingRegimesWithZeroReturns(t *testing.T) {
	index := quarterEnds(8)
	growth := make([]float64, 8)
	unemp := make([]float64, 8)
	for i := range growth {
		if i%2 == 0 {
			growth[i], unemp[i] = 2.5, 5.5
		} else {
			growth[i], unemp[i] = 0.2, 7.0
		}
	}
	macro, err := datamodels.NewFrame("macro", index, []string{"gdp_growth", "unemp"}, [][]float64{growth, unemp})
	require.NoError(t, err)

	labels, err := regimes.LabelMacroRegimes(macro, "gdp_growth", "unemp")
	require.NoError(t, err)
	for i, r := range labels.Values {
		want := datamodels.RegimeExpansion
		if i%2 == 1 {
			want = datamodels.RegimeRecession
		}
		assert.Equal(t, want, r)
	}

	zeros := func() []float64 { return make([]float64, 8) }
	returns, err := datamodels.NewFrame("returns", index, []string{"SPY", "AGG", "GLD"}, [][]float64{zeros(), zeros(), zeros()})
	require.NoError(t, err)

	strategy, err := BacktestRegimeStrategy(returns, labels, allocation.SimpleRegimeWeights)
	require.NoError(t, err)
	assert.Equal(t, StrategyReturnName, strategy.Name)
	require.Equal(t, 8, strategy.Len())
	for _, v := range strategy.Values {
		assert.Equal(t, 0.0, v)
	}
}

func TestBacktestRegimeStrategyDotProduct(t *testing.T) {
	index := quarterEnds(4)
	returns, err := datamodels.NewFrame("returns", index, []string{"SPY", "AGG"}, [][]float64{
		{0.10, -0.05, 0.02, math.NaN()},
		{0.01, 0.03, 0.00, 0.01},
	})
	require.NoError(t, err)
	// predictions miss the second period
	predicted, err := datamodels.NewRegimeSeries("regime_pred",
		[]time.Time{index[0], index[2], index[3]},
		[]datamodels.Regime{datamodels.RegimeExpansion, datamodels.RegimeRecession, datamodels.RegimeSlowdown})
	require.NoError(t, err)

	records, err := SimulatePeriods(returns, predicted, allocation.SimpleRegimeWeights)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, index[0], records[0].Timestamp)
	assert.InDelta(t, 0.7*0.10+0.3*0.01, records[0].StrategyReturn, 1e-12)
	assert.InDelta(t, 0.055, records[0].BenchmarkReturn, 1e-12)
	assert.InDelta(t, 0.7, records[0].Weights["SPY"], 1e-12)
	assert.Equal(t, datamodels.RegimeRecession, records[1].Regime)
	assert.InDelta(t, 0.2*0.02+0.8*0.00, records[1].StrategyReturn, 1e-12)

	series, err := BacktestRegimeStrategy(returns, predicted, allocation.SimpleRegimeWeights)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{index[0], index[2]}, series.Index)
}

func TestBacktestRegimeStrategyErrors(t *testing.T) {
	index := quarterEnds(1)
	returns, _ := datamodels.NewFrame("returns", index, []string{"SPY", "AGG"}, [][]float64{{0.1}, {0.2}})
	predicted, _ := datamodels.NewRegimeSeries("regime_pred", index, []datamodels.Regime{datamodels.RegimeExpansion})

	short := func(datamodels.Regime, []string) []float64 { return []float64{1} }
	_, err := BacktestRegimeStrategy(returns, predicted, short)
	assert.True(t, errors.Is(err, errors.ErrLengthMismatch))

	_, err = BacktestRegimeStrategy(returns, predicted, nil)
	assert.Error(t, err)
}

func TestBacktestRegimeStrategyEmptyOverlap(t *testing.T) {
	returns, _ := datamodels.NewFrame("returns", quarterEnds(2), []string{"SPY"}, [][]float64{{0.1, 0.2}})
	predicted, _ := datamodels.NewRegimeSeries("regime_pred", nil, nil)

	series, err := BacktestRegimeStrategy(returns, predicted, allocation.SimpleRegimeWeights)
	require.NoError(t, err)
	assert.Equal(t, 0, series.Len())

	stats := SummaryStats(series, 4)
	assert.True(t, math.IsNaN(stats.Sharpe))
	assert.True(t, math.IsNaN(stats.MaxDrawdown))
}

func TestEqualWeightReturns(t *testing.T) {
	index := quarterEnds(3)
	returns, _ := datamodels.NewFrame("returns", index, []string{"A", "B"}, [][]float64{
		{0.1, math.NaN(), 0.3},
		{0.3, 0.2, -0.1},
	})
	series, err := EqualWeightReturns(returns)
	require.NoError(t, err)
	assert.Equal(t, EqualWeightReturnName, series.Name)
	assert.Equal(t, []time.Time{index[0], index[2]}, series.Index)
	assert.InDeltaSlice(t, []float64{0.2, 0.1}, series.Values, 1e-12)
}

func TestEquityCurve(t *testing.T) {
	series, _ := datamodels.NewSeries("s", quarterEnds(3), []float64{0.1, -0.5, 1.0})
	curve := EquityCurve(series)
	assert.InDeltaSlice(t, []float64{1.1, 0.55, 1.1}, curve.Values, 1e-12)
	assert.Equal(t, "s_equity", curve.Name)
}
