package regimes

import (
	"macrocopilot/src/datamodels"
)

// ClassificationReport scores predictions against the truth per class, for
// every class seen in either. Undefined ratios are reported as 0.
func ClassificationReport(truth, pred []datamodels.Regime) datamodels.ClassificationReport {
	labels := datamodels.SortedUniqueRegimes(append(append([]datamodels.Regime(nil), truth...), pred...))
	report := datamodels.ClassificationReport{Classes: make(map[datamodels.Regime]datamodels.ClassMetrics, len(labels))}

	correct := 0
	for i := range truth {
		if truth[i] == pred[i] {
			correct++
		}
	}
	report.Accuracy = safeDiv(float64(correct), float64(len(truth)))

	var macroP, macroR, macroF, weightedP, weightedR, weightedF float64
	for _, label := range labels {
		tp, fp, fn := 0, 0, 0
		for i := range truth {
			switch {
			case truth[i] == label && pred[i] == label:
				tp++
			case pred[i] == label:
				fp++
			case truth[i] == label:
				fn++
			}
		}
		precision := safeDiv(float64(tp), float64(tp+fp))
		recall := safeDiv(float64(tp), float64(tp+fn))
		f1 := safeDiv(2*precision*recall, precision+recall)
		support := tp + fn
		report.Classes[label] = datamodels.ClassMetrics{Precision: precision, Recall: recall, F1: f1, Support: support}

		macroP += precision
		macroR += recall
		macroF += f1
		weightedP += precision * float64(support)
		weightedR += recall * float64(support)
		weightedF += f1 * float64(support)
	}

	n := float64(len(labels))
	total := float64(len(truth))
	report.MacroAvg = datamodels.ClassMetrics{
		Precision: safeDiv(macroP, n),
		Recall:    safeDiv(macroR, n),
		F1:        safeDiv(macroF, n),
		Support:   len(truth),
	}
	report.WeightedAvg = datamodels.ClassMetrics{
		Precision: safeDiv(weightedP, total),
		Recall:    safeDiv(weightedR, total),
		F1:        safeDiv(weightedF, total),
		Support:   len(truth),
	}
	return report
}

// ConfusionMatrix counts (truth, prediction) pairs. Row i and column j follow
// labels[i] and labels[j]; pairs with a label outside labels are ignored.
func ConfusionMatrix(truth, pred []datamodels.Regime, labels []datamodels.Regime) [][]int {
	pos := make(map[datamodels.Regime]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	matrix := make([][]int, len(labels))
	for i := range matrix {
		matrix[i] = make([]int, len(labels))
	}
	for i := range truth {
		r, okT := pos[truth[i]]
		c, okP := pos[pred[i]]
		if okT && okP {
			matrix[r][c]++
		}
	}
	return matrix
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
