package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"macrocopilot/src/datamodels"
)

func TestSummaryStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := SummaryStats(&datamodels.Series{}, 4)
		assert.True(t, math.IsNaN(s.AnnReturn))
		assert.True(t, math.IsNaN(s.AnnVol))
		assert.True(t, math.IsNaN(s.Sharpe))
		assert.True(t, math.IsNaN(s.MaxDrawdown))
		assert.Equal(t, 0, s.Periods)
	})

	t.Run("single period", func(t *testing.T) {
		series, _ := datamodels.NewSeries("s", quarterEnds(1), []float64{0.1})
		s := SummaryStats(series, 4)
		assert.InDelta(t, math.Pow(1.1, 4)-1, s.AnnReturn, 1e-12)
		assert.True(t, math.IsNaN(s.AnnVol))
		assert.True(t, math.IsNaN(s.Sharpe))
		assert.Equal(t, 0.0, s.MaxDrawdown)
	})

	t.Run("up then down", func(t *testing.T) {
		series, _ := datamodels.NewSeries("s", quarterEnds(2), []float64{0.1, -0.1})
		s := SummaryStats(series, 4)
		assert.InDelta(t, 0.99*0.99-1, s.AnnReturn, 1e-12)
		assert.InDelta(t, math.Sqrt(0.02)*2, s.AnnVol, 1e-12)
		assert.InDelta(t, (0.99*0.99-1)/(math.Sqrt(0.02)*2), s.Sharpe, 1e-12)
		assert.InDelta(t, 0.11/0.99, s.MaxDrawdown, 1e-12)
		assert.Equal(t, 2, s.Periods)
	})

	t.Run("zero volatility", func(t *testing.T) {
		series, _ := datamodels.NewSeries("s", quarterEnds(4), []float64{0, 0, 0, 0})
		s := SummaryStats(series, 4)
		assert.Equal(t, 0.0, s.AnnReturn)
		assert.Equal(t, 0.0, s.AnnVol)
		assert.True(t, math.IsNaN(s.Sharpe))
		assert.Equal(t, 0.0, s.MaxDrawdown)
	})

	t.Run("monthly annualisation", func(t *testing.T) {
		values := make([]float64, 12)
		for i := range values {
			values[i] = 0.01
		}
		series, _ := datamodels.NewSeries("s", quarterEnds(12), values)
		s := SummaryStats(series, 12)
		assert.InDelta(t, math.Pow(1.01, 12)-1, s.AnnReturn, 1e-12)
	})
}
