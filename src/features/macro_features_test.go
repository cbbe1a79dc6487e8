package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

func quarterIndex(n int) []time.Time {
	index := make([]time.Time, n)
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range index {
		index[i] = FrequencyQuarterly.PeriodEnd(start.AddDate(0, 3*i, 0))
	}
	return index
}

func testMacroFrame(t *testing.T, n int) *datamodels.Frame {
	growth := make([]float64, n)
	unemp := make([]float64, n)
	for i := 0; i < n; i++ {
		growth[i] = 1.0 + float64(i%3)
		unemp[i] = 5.0 + 0.25*float64(i)
	}
	frame, err := datamodels.NewFrame("macro", quarterIndex(n), []string{"gdp_growth", "unemp"}, [][]float64{growth, unemp})
	require.NoError(t, err)
	return frame
}

func TestBuildMacroFeaturesColumns(t *testing.T) {
	macro := testMacroFrame(t, 12)

	for _, lags := range []int{0, 1, 2, 4} {
		out, err := BuildMacroFeatures(macro, lags)
		require.NoError(t, err)
		assert.Equal(t, macro.Width()*(lags+2), out.Width(), "lags=%d", lags)
		assert.Equal(t, 0, out.CountNaN(), "lags=%d", lags)
	}

	out, err := BuildMacroFeatures(macro, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"gdp_growth_lag1", "gdp_growth_lag2", "gdp_growth_chg", "gdp_growth_roll_std",
		"unemp_lag1", "unemp_lag2", "unemp_chg", "unemp_roll_std",
	}, out.Columns)
	// Rolling std needs three observations, lag2 needs two prior rows.
	assert.Equal(t, 10, out.Len())
	assert.Equal(t, macro.Index[2], out.Index[0])
}

func TestBuildMacroFeaturesValues(t *testing.T) {
	index := quarterIndex(5)
	macro, err := datamodels.NewFrame("macro", index, []string{"x"}, [][]float64{{1, 2, 4, 8, 16}})
	require.NoError(t, err)

	out, err := BuildMacroFeatures(macro, 1)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	lag, _ := out.Column("x_lag1")
	chg, _ := out.Column("x_chg")
	roll, _ := out.Column("x_roll_std")
	assert.Equal(t, []float64{2, 4, 8}, lag)
	assert.Equal(t, []float64{2, 4, 8}, chg)
	// std of {1,2,4}, {1,2,4,8}, {2,4,8,16}
	assert.InDelta(t, 1.5275252, roll[0], 1e-6)
	assert.InDelta(t, 3.0956959, roll[1], 1e-6)
	assert.InDelta(t, 6.1913918, roll[2], 1e-6)
}

func TestBuildMacroFeaturesSortsInput(t *testing.T) {
	index := quarterIndex(6)
	values := []float64{1, 2, 3, 4, 5, 6}
	shuffled := []int{3, 0, 5, 1, 4, 2}
	idx := make([]time.Time, len(shuffled))
	vals := make([]float64, len(shuffled))
	for i, j := range shuffled {
		idx[i] = index[j]
		vals[i] = values[j]
	}
	macro, err := datamodels.NewFrame("macro", idx, []string{"x"}, [][]float64{vals})
	require.NoError(t, err)

	out, err := BuildMacroFeatures(macro, 1)
	require.NoError(t, err)
	chg, _ := out.Column("x_chg")
	for _, v := range chg {
		assert.Equal(t, 1.0, v)
	}
	assert.True(t, out.IsSorted())
}

func TestBuildMacroFeaturesErrors(t *testing.T) {
	_, err := BuildMacroFeatures(testMacroFrame(t, 4), -1)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestRollingStdSkipsNaN(t *testing.T) {
	out, err := RollingStd([]float64{1, math.NaN(), 2, 3, 4}, 4, 3)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.True(t, math.IsNaN(out[2]))
	assert.InDelta(t, 1.0, out[3], 1e-9)
	assert.InDelta(t, 1.0, out[4], 1e-9)

	_, err = RollingStd([]float64{1}, 2, 3)
	assert.Error(t, err)
}
