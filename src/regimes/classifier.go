package regimes

import (
	"log/slog"
	"time"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

// Classifier fits a Predictor on a feature matrix and its labels.
type Classifier interface {
	Fit(X [][]float64, y []datamodels.Regime) (Predictor, error)
}

// Predictor labels a single feature row. Predictors must be safe for
// concurrent use and deterministic.
type Predictor interface {
	Predict(x []float64) datamodels.Regime
}

// RegimeModel bundles a fitted predictor with the ordered feature columns it
// was trained on. It is not modified after training.
type RegimeModel struct {
	predictor      Predictor
	featureColumns []string
}

func NewRegimeModel(predictor Predictor, featureColumns []string) *RegimeModel {
	return &RegimeModel{predictor: predictor, featureColumns: append([]string(nil), featureColumns...)}
}

// FeatureColumns returns a copy of the training column order.
func (m *RegimeModel) FeatureColumns() []string {
	return append([]string(nil), m.featureColumns...)
}

// Trained is false when training saw no rows; such a model predicts nothing.
func (m *RegimeModel) Trained() bool {
	return m != nil && m.predictor != nil
}

type TrainOptions struct {
	TestSize float64
	Seed     int64
	// Nil means a RandomForest with default parameters and Seed.
	Classifier Classifier
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{TestSize: 0.25, Seed: 42}
}

// TrainRegimeClassifier joins features and labels on time, fits on the
// chronologically first (1-TestSize) share of rows and evaluates on the rest.
func TrainRegimeClassifier(features *datamodels.Frame, labels *datamodels.RegimeSeries, opts TrainOptions) (*RegimeModel, *datamodels.EvaluationMetrics, error) {
	if opts.TestSize < 0 || opts.TestSize >= 1 {
		return nil, nil, errors.Wrapf(errors.ErrInvalidConfig, "test size must be in [0, 1), got %v", opts.TestSize)
	}
	classifier := opts.Classifier
	if classifier == nil {
		params := DefaultForestParams()
		params.Seed = opts.Seed
		classifier = NewRandomForest(params)
	}

	fi, li := datamodels.JoinIndex(features.Index, labels.Index)
	X := make([][]float64, len(fi))
	y := make([]datamodels.Regime, len(fi))
	for i := range fi {
		X[i] = features.Row(fi[i])
		y[i] = labels.Values[li[i]]
	}
	columns := append([]string(nil), features.Columns...)

	split := int(float64(len(X)) * (1 - opts.TestSize))
	if split == 0 {
		slog.Warn("No training rows after joining features and labels", "feature_rows", features.Len(), "label_rows", labels.Len(), "joined_rows", len(X))
		return NewRegimeModel(nil, columns), emptyEvaluation(y), nil
	}

	start := time.Now()
	predictor, err := classifier.Fit(X[:split], y[:split])
	if err != nil {
		return nil, nil, errors.Wrapf(err, "fitting regime classifier on %d rows", split)
	}
	model := NewRegimeModel(predictor, columns)

	testPred := make([]datamodels.Regime, 0, len(X)-split)
	for _, row := range X[split:] {
		testPred = append(testPred, predictor.Predict(row))
	}
	labelSet := datamodels.SortedUniqueRegimes(y)
	metrics := &datamodels.EvaluationMetrics{
		Report:          ClassificationReport(y[split:], testPred),
		ConfusionMatrix: ConfusionMatrix(y[split:], testPred, labelSet),
		Labels:          labelSet,
		TrainSize:       split,
		TestSize:        len(X) - split,
	}
	slog.Info("Trained regime classifier",
		"train_rows", metrics.TrainSize,
		"test_rows", metrics.TestSize,
		"features", len(columns),
		"accuracy", metrics.Report.Accuracy,
		"elapsed", time.Since(start))
	return model, metrics, nil
}

func emptyEvaluation(y []datamodels.Regime) *datamodels.EvaluationMetrics {
	labelSet := datamodels.SortedUniqueRegimes(y)
	return &datamodels.EvaluationMetrics{
		Report:          ClassificationReport(nil, nil),
		ConfusionMatrix: ConfusionMatrix(nil, nil, labelSet),
		Labels:          labelSet,
		TestSize:        len(y),
	}
}

// PredictRegimes applies the model to every row of features, using exactly the
// model's columns in training order.
func PredictRegimes(model *RegimeModel, features *datamodels.Frame) (*datamodels.RegimeSeries, error) {
	if model == nil {
		return nil, errors.New("nil regime model")
	}
	selected, err := features.Select(model.featureColumns...)
	if err != nil {
		return nil, err
	}
	if !model.Trained() {
		slog.Warn("Regime model is untrained, predicting no periods")
		return datamodels.NewRegimeSeries("regime_pred", nil, nil)
	}
	preds := make([]datamodels.Regime, selected.Len())
	for r := range preds {
		preds[r] = model.predictor.Predict(selected.Row(r))
	}
	return datamodels.NewRegimeSeries("regime_pred", selected.Index, preds)
}
