package regimes

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

// separableData builds n periods whose label is fully determined by the sign
// of the first feature; the second feature is noise.
func separableData(t *testing.T, n int) (*datamodels.Frame, *datamodels.RegimeSeries) {
	rng := rand.New(rand.NewSource(7))
	index := quarters(n)
	signal := make([]float64, n)
	noise := make([]float64, n)
	labels := make([]datamodels.Regime, n)
	for i := 0; i < n; i++ {
		noise[i] = rng.NormFloat64()
		if i%2 == 0 {
			signal[i] = 1 + rng.Float64()
			labels[i] = datamodels.RegimeExpansion
		} else {
			signal[i] = -1 - rng.Float64()
			labels[i] = datamodels.RegimeRecession
		}
	}
	features, err := datamodels.NewFrame("features", index, []string{"signal", "noise"}, [][]float64{signal, noise})
	require.NoError(t, err)
	series, err := datamodels.NewRegimeSeries("regime", index, labels)
	require.NoError(t, err)
	return features, series
}

func smallForest(seed int64, workers int) *RandomForest {
	return NewRandomForest(ForestParams{NumTrees: 25, MinSamplesLeaf: 1, MaxFeatures: 2, Seed: seed, Workers: workers})
}

func TestTrainRegimeClassifierSplit(t *testing.T) {
	features, labels := separableData(t, 40)

	model, metrics, err := TrainRegimeClassifier(features, labels, TrainOptions{TestSize: 0.25, Seed: 1, Classifier: smallForest(1, 2)})
	require.NoError(t, err)
	require.True(t, model.Trained())

	assert.Equal(t, 30, metrics.TrainSize)
	assert.Equal(t, 10, metrics.TestSize)
	assert.Equal(t, []datamodels.Regime{datamodels.RegimeExpansion, datamodels.RegimeRecession}, metrics.Labels)
	assert.Equal(t, []string{"signal", "noise"}, model.FeatureColumns())

	assert.Equal(t, 1.0, metrics.Report.Accuracy)
	assert.Equal(t, 1.0, metrics.Report.Classes[datamodels.RegimeExpansion].Precision)
	assert.Equal(t, 5, metrics.Report.Classes[datamodels.RegimeExpansion].Support)
	assert.Equal(t, [][]int{{5, 0}, {0, 5}}, metrics.ConfusionMatrix)
}

func TestTrainRegimeClassifierDefaultForest(t *testing.T) {
	features, labels := separableData(t, 16)
	model, metrics, err := TrainRegimeClassifier(features, labels, DefaultTrainOptions())
	require.NoError(t, err)
	assert.True(t, model.Trained())
	assert.Equal(t, 12, metrics.TrainSize)
	assert.Equal(t, 4, metrics.TestSize)
}

func TestTrainRegimeClassifierInvalidTestSize(t *testing.T) {
	features, labels := separableData(t, 8)
	for _, ts := range []float64{-0.1, 1, 1.5} {
		_, _, err := TrainRegimeClassifier(features, labels, TrainOptions{TestSize: ts})
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "test size %v", ts)
	}
}

func TestTrainRegimeClassifierEmptyOverlap(t *testing.T) {
	features, _ := separableData(t, 8)
	later := make([]time.Time, 4)
	for i := range later {
		later[i] = time.Date(2030, time.Month(3*i+4), 0, 0, 0, 0, 0, time.UTC)
	}
	labels, err := datamodels.NewRegimeSeries("regime", later, []datamodels.Regime{"expansion", "recession", "expansion", "recession"})
	require.NoError(t, err)

	model, metrics, err := TrainRegimeClassifier(features, labels, TrainOptions{TestSize: 0.25, Classifier: smallForest(1, 1)})
	require.NoError(t, err)
	assert.False(t, model.Trained())
	assert.Equal(t, 0, metrics.TrainSize)
	assert.Empty(t, metrics.Labels)

	preds, err := PredictRegimes(model, features)
	require.NoError(t, err)
	assert.Equal(t, 0, preds.Len())
}

func TestPredictRegimesColumnOrder(t *testing.T) {
	features, labels := separableData(t, 24)
	model, _, err := TrainRegimeClassifier(features, labels, TrainOptions{TestSize: 0.25, Classifier: smallForest(3, 1)})
	require.NoError(t, err)

	base, err := PredictRegimes(model, features)
	require.NoError(t, err)
	require.Equal(t, features.Len(), base.Len())
	assert.Equal(t, features.Index, base.Index)

	reordered, err := features.Select("noise", "signal")
	require.NoError(t, err)
	again, err := PredictRegimes(model, reordered)
	require.NoError(t, err)
	assert.Equal(t, base.Values, again.Values)

	t.Run("missing column", func(t *testing.T) {
		partial, err := features.Select("signal")
		require.NoError(t, err)
		_, err = PredictRegimes(model, partial)
		assert.True(t, errors.Is(err, errors.ErrMissingColumn))
	})

	t.Run("feature columns are a copy", func(t *testing.T) {
		cols := model.FeatureColumns()
		cols[0] = "mutated"
		assert.Equal(t, "signal", model.FeatureColumns()[0])
	})
}

func TestRandomForestDeterministicAcrossWorkers(t *testing.T) {
	features, labels := separableData(t, 60)
	X := make([][]float64, features.Len())
	for r := range X {
		X[r] = features.Row(r)
	}
	// flip a few labels so trees disagree
	y := append([]datamodels.Regime(nil), labels.Values...)
	for _, i := range []int{3, 10, 17, 40} {
		y[i] = datamodels.RegimeSlowdown
	}

	single, err := smallForest(99, 1).Fit(X, y)
	require.NoError(t, err)
	parallel, err := smallForest(99, 8).Fit(X, y)
	require.NoError(t, err)

	probe := rand.New(rand.NewSource(5))
	for i := 0; i < 200; i++ {
		x := []float64{probe.NormFloat64() * 2, probe.NormFloat64() * 2}
		assert.Equal(t, single.Predict(x), parallel.Predict(x))
	}
}

func TestRandomForestFitErrors(t *testing.T) {
	_, err := NewRandomForest(ForestParams{NumTrees: 0, MinSamplesLeaf: 1}).Fit([][]float64{{1}}, []datamodels.Regime{"expansion"})
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	_, err = smallForest(1, 1).Fit([][]float64{{1}, {2}}, []datamodels.Regime{"expansion"})
	assert.True(t, errors.Is(err, errors.ErrLengthMismatch))

	_, err = smallForest(1, 1).Fit(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}

func TestRandomForestSingleClass(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	y := []datamodels.Regime{datamodels.RegimeSlowdown, datamodels.RegimeSlowdown, datamodels.RegimeSlowdown}
	model, err := smallForest(1, 1).Fit(X, y)
	require.NoError(t, err)
	assert.Equal(t, datamodels.RegimeSlowdown, model.Predict([]float64{100}))
}
