package datamodels

import "sort"

type Regime string

const (
	RegimeExpansion Regime = "expansion"
	RegimeRecession Regime = "recession"
	RegimeRecovery  Regime = "recovery"
	RegimeSlowdown  Regime = "slowdown"
)

// AllRegimes returns the closed regime set in sorted order.
func AllRegimes() []Regime {
	return []Regime{RegimeExpansion, RegimeRecession, RegimeRecovery, RegimeSlowdown}
}

func (r Regime) IsKnown() bool {
	switch r {
	case RegimeExpansion, RegimeRecession, RegimeRecovery, RegimeSlowdown:
		return true
	}
	return false
}

// SortedUniqueRegimes returns the distinct labels of values in ascending order.
func SortedUniqueRegimes(values []Regime) []Regime {
	seen := make(map[Regime]bool)
	out := make([]Regime, 0)
	for _, r := range values {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClassMetrics are the per-class scores of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

type ClassificationReport struct {
	Classes     map[Regime]ClassMetrics `json:"classes"`
	Accuracy    float64                 `json:"accuracy"`
	MacroAvg    ClassMetrics            `json:"macro_avg"`
	WeightedAvg ClassMetrics            `json:"weighted_avg"`
}

// EvaluationMetrics describes a trained classifier's performance on the held-out tail.
// ConfusionMatrix rows are true labels and columns predicted labels, both ordered as Labels.
type EvaluationMetrics struct {
	Report          ClassificationReport `json:"classification_report"`
	ConfusionMatrix [][]int              `json:"confusion_matrix"`
	Labels          []Regime             `json:"labels"`
	TrainSize       int                  `json:"train_size"`
	TestSize        int                  `json:"test_size"`
}
