package allocation

import (
	"macrocopilot/src/datamodels"
)

// WeightFunc maps a regime to a weight vector over assets, one entry per asset.
type WeightFunc func(regime datamodels.Regime, assets []string) []float64

// Tilts applied on top of equal weight.
const (
	ExpansionTilt       = 0.2
	RecessionBondTilt   = 0.2
	RecessionHedgeTilt  = 0.1
	RecessionEquityTilt = 0.3
)

// SimpleRegimeWeights starts from equal weight and tilts towards the first
// asset in an expansion and away from it in a recession. Negative weights are
// clipped to zero before the vector is renormalised to sum to 1. Regimes
// without a tilt, and universes too small for one, get equal weight.
func SimpleRegimeWeights(regime datamodels.Regime, assets []string) []float64 {
	n := len(assets)
	w := EqualWeights(n)
	if n < 2 {
		return w
	}

	switch regime {
	case datamodels.RegimeExpansion:
		w[0] += ExpansionTilt
		w[n-1] -= ExpansionTilt / float64(n-1)
	case datamodels.RegimeRecession:
		w[1] += RecessionBondTilt
		w[n-1] += RecessionHedgeTilt
		w[0] -= RecessionEquityTilt
	}
	return clipAndNormalize(w)
}

// EqualWeights returns n weights of 1/n.
func EqualWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

func clipAndNormalize(w []float64) []float64 {
	sum := 0.0
	for i, v := range w {
		if v < 0 {
			w[i] = 0
		}
		sum += w[i]
	}
	if sum == 0 {
		return EqualWeights(len(w))
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
