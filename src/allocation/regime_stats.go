package allocation

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

// RegimeStats are the asset return moments observed while a regime held.
type RegimeStats struct {
	Assets       []string
	Mean         []float64
	Covariance   *mat.SymDense
	Observations int
}

// EstimateRegimeStats groups the periods shared by returns and regimes by
// regime and computes the per-asset mean and the sample covariance matrix of
// each group. Periods with a missing return are skipped.
func EstimateRegimeStats(returns *datamodels.Frame, regimes *datamodels.RegimeSeries) (map[datamodels.Regime]RegimeStats, error) {
	if returns.Width() == 0 {
		return nil, errors.Wrap(errors.ErrInsufficientData, "returns table has no assets")
	}
	ri, gi := datamodels.JoinIndex(returns.Index, regimes.Index)
	assets := append([]string(nil), returns.Columns...)

	grouped := make(map[datamodels.Regime][]float64)
	counts := make(map[datamodels.Regime]int)
	for k, r := range ri {
		row := returns.Row(r)
		if hasNaN(row) {
			continue
		}
		regime := regimes.Values[gi[k]]
		grouped[regime] = append(grouped[regime], row...)
		counts[regime]++
	}

	out := make(map[datamodels.Regime]RegimeStats, len(grouped))
	for _, regime := range datamodels.SortedUniqueRegimes(regimesOf(counts)) {
		n := counts[regime]
		data := mat.NewDense(n, len(assets), grouped[regime])

		mean := make([]float64, len(assets))
		for c := range assets {
			mean[c] = stat.Mean(mat.Col(nil, c, data), nil)
		}
		cov := mat.NewSymDense(len(assets), nil)
		if n > 1 {
			stat.CovarianceMatrix(cov, data, nil)
		} else {
			// one observation has no sample covariance
			for i := range assets {
				for j := i; j < len(assets); j++ {
					cov.SetSym(i, j, math.NaN())
				}
			}
		}
		out[regime] = RegimeStats{Assets: assets, Mean: mean, Covariance: cov, Observations: n}
		slog.Debug("Estimated regime statistics", "regime", regime, "periods", n)
	}
	return out, nil
}

func regimesOf(counts map[datamodels.Regime]int) []datamodels.Regime {
	out := make([]datamodels.Regime, 0, len(counts))
	for r := range counts {
		out = append(out, r)
	}
	return out
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
