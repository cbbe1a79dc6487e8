package regimes

import (
	"log/slog"

	"macrocopilot/src/datamodels"
)

const (
	DefaultGrowthColumn       = "gdp_growth"
	DefaultUnemploymentColumn = "unemp"
)

// LabelMacroRegimes assigns one regime per period from the growth and
// unemployment readings of that period. Every row gets exactly one label.
func LabelMacroRegimes(macro *datamodels.Frame, growthCol, unempCol string) (*datamodels.RegimeSeries, error) {
	growth, err := macro.Column(growthCol)
	if err != nil {
		return nil, err
	}
	unemp, err := macro.Column(unempCol)
	if err != nil {
		return nil, err
	}

	labels := make([]datamodels.Regime, len(growth))
	for i := range growth {
		labels[i] = ClassifyPeriod(growth[i], unemp[i])
	}
	out, err := datamodels.NewRegimeSeries("regime", append(macro.Index[:0:0], macro.Index...), labels)
	if err != nil {
		return nil, err
	}
	slog.Debug("Labelled macro regimes", "periods", out.Len(), "counts", out.Counts())
	return out, nil
}

// ClassifyPeriod applies the threshold rules in order; the first match wins.
func ClassifyPeriod(growth, unemp float64) datamodels.Regime {
	switch {
	case growth > 2.0 && unemp < 6.0:
		return datamodels.RegimeExpansion
	case growth < 0.5 && unemp > 6.5:
		return datamodels.RegimeRecession
	case growth > 0.5 && growth <= 2.0 && unemp >= 6.0:
		return datamodels.RegimeRecovery
	default:
		return datamodels.RegimeSlowdown
	}
}
