package feeds

import (
	"math"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/features"
)

// PricesToReturns samples each asset's last price per period and converts it
// into simple period returns. The first period has no return and is dropped,
// as is any period where a price is missing.
func PricesToReturns(prices *datamodels.Frame, freq features.Frequency) (*datamodels.Frame, error) {
	sampled, err := features.AlignToPeriodEnd(lastValid(prices), freq)
	if err != nil {
		return nil, err
	}
	values := make([][]float64, sampled.Width())
	for c := range values {
		values[c] = make([]float64, sampled.Len())
		for r := range values[c] {
			if r == 0 {
				values[c][r] = math.NaN()
				continue
			}
			values[c][r] = sampled.Values[c][r]/sampled.Values[c][r-1] - 1
		}
	}
	returns, err := datamodels.NewFrame("returns", sampled.Index, append([]string(nil), sampled.Columns...), values)
	if err != nil {
		return nil, err
	}
	return returns.DropNA(), nil
}

// lastValid forward fills gaps so a period's last row carries the latest known
// price of every asset.
func lastValid(prices *datamodels.Frame) *datamodels.Frame {
	sorted := prices.Sorted()
	values := make([][]float64, sorted.Width())
	for c := range values {
		values[c] = make([]float64, sorted.Len())
		last := math.NaN()
		for r, v := range sorted.Values[c] {
			if !math.IsNaN(v) {
				last = v
			}
			values[c][r] = last
		}
	}
	return &datamodels.Frame{Name: sorted.Name, Index: sorted.Index, Columns: sorted.Columns, Values: values}
}
