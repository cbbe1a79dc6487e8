package regimes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

func quarters(n int) []time.Time {
	index := make([]time.Time, n)
	for i := range index {
		// last day of each quarter starting Q1 2015
		index[i] = time.Date(2015, time.Month(3*i+4), 0, 0, 0, 0, 0, time.UTC)
	}
	return index
}

func TestClassifyPeriod(t *testing.T) {
	tests := []struct {
		name   string
		growth float64
		unemp  float64
		want   datamodels.Regime
	}{
		{"expansion", 2.5, 5.5, datamodels.RegimeExpansion},
		{"recession", 0.2, 7.0, datamodels.RegimeRecession},
		{"recovery", 1.5, 6.2, datamodels.RegimeRecovery},
		{"recovery upper bound", 2.0, 6.0, datamodels.RegimeRecovery},
		{"growth exactly 0.5 is slowdown", 0.5, 7.0, datamodels.RegimeSlowdown},
		{"growth 2.0 with low unemployment", 2.0, 5.0, datamodels.RegimeSlowdown},
		{"high growth high unemployment", 3.0, 6.5, datamodels.RegimeSlowdown},
		{"negative growth moderate unemployment", -1.0, 6.5, datamodels.RegimeSlowdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPeriod(tt.growth, tt.unemp))
		})
	}
}

func TestLabelMacroRegimesAlternates(t *testing.T) {
	growth := make([]float64, 8)
	unemp := make([]float64, 8)
	for i := range growth {
		if i%2 == 0 {
			growth[i], unemp[i] = 2.5, 5.5
		} else {
			growth[i], unemp[i] = 0.2, 7.0
		}
	}
	macro, err := datamodels.NewFrame("macro", quarters(8), []string{DefaultGrowthColumn, DefaultUnemploymentColumn}, [][]float64{growth, unemp})
	require.NoError(t, err)

	labels, err := LabelMacroRegimes(macro, DefaultGrowthColumn, DefaultUnemploymentColumn)
	require.NoError(t, err)
	require.Equal(t, 8, labels.Len())
	assert.Equal(t, macro.Index, labels.Index)
	for i, r := range labels.Values {
		if i%2 == 0 {
			assert.Equal(t, datamodels.RegimeExpansion, r)
		} else {
			assert.Equal(t, datamodels.RegimeRecession, r)
		}
	}
}

func TestLabelMacroRegimesIsTotal(t *testing.T) {
	n := 40
	growth := make([]float64, n)
	unemp := make([]float64, n)
	for i := 0; i < n; i++ {
		growth[i] = -2 + 0.15*float64(i)
		unemp[i] = 9 - 0.12*float64(i)
	}
	macro, err := datamodels.NewFrame("macro", quarters(n), []string{"g", "u"}, [][]float64{growth, unemp})
	require.NoError(t, err)

	labels, err := LabelMacroRegimes(macro, "g", "u")
	require.NoError(t, err)
	assert.Equal(t, n, labels.Len())
	for _, r := range labels.Values {
		assert.True(t, r.IsKnown(), "unexpected label %q", r)
	}
}

func TestLabelMacroRegimesMissingColumn(t *testing.T) {
	macro, err := datamodels.NewFrame("macro", quarters(2), []string{"gdp_growth"}, [][]float64{{1, 2}})
	require.NoError(t, err)

	_, err = LabelMacroRegimes(macro, DefaultGrowthColumn, DefaultUnemploymentColumn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingColumn))
	assert.Contains(t, err.Error(), DefaultUnemploymentColumn)
}
