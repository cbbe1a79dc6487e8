package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"markets", "rally", "on", "fed's", "optimism"}, Tokenize("Markets RALLY on Fed's optimism!"))
	assert.Empty(t, Tokenize("2024 - 99%"))
}

func TestScoreHeadline(t *testing.T) {
	pos := DefaultPositiveWords()
	neg := DefaultNegativeWords()

	tests := []struct {
		name     string
		headline string
		want     float64
	}{
		{"positive", "Strong growth and robust hiring", 3},
		{"negative", "Recession fear and panic", -3},
		{"mixed", "Rally fades on crisis worry", -1},
		{"none", "Central bank meets on Tuesday", 0},
		{"repeated", "gain gain gain", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreHeadline(tt.headline, pos, neg))
		})
	}

	t.Run("token in both lexicons nets out", func(t *testing.T) {
		both := Lexicon{"volatility": 1}
		assert.Equal(t, 0.0, ScoreHeadline("volatility", both, neg))
	})
}

func TestDefaultLexiconsAreCopies(t *testing.T) {
	pos := DefaultPositiveWords()
	pos["strong"] = 10
	delete(pos, "rally")
	assert.Equal(t, 1.0, DefaultPositiveWords()["strong"])
	assert.Contains(t, DefaultPositiveWords(), "rally")
}

func TestBuildSentimentIndexQuarterly(t *testing.T) {
	records := []datamodels.TextRecord{
		{Date: day(2020, 1, 15), Headline: "Strong growth"},
		{Date: day(2020, 1, 15), Headline: "Record rally"},
		{Date: day(2020, 2, 3), Headline: "Recession fear"},
		// nothing in Q2
		{Date: day(2020, 8, 20), Headline: "Crisis"},
	}
	out, err := BuildSentimentIndex(records, DefaultPositiveWords(), DefaultNegativeWords(), FrequencyQuarterly)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{day(2020, 3, 31), day(2020, 6, 30), day(2020, 9, 30)}, out.Index)
	raw, err := out.Column(SentimentRawColumn)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, -1}, raw)

	// mean 1/3, sample std sqrt(7/3)
	norm, _ := out.Column(SentimentNormColumn)
	assert.InDelta(t, (2-1.0/3)/1.5275252, norm[0], 1e-6)
	assert.InDelta(t, (0-1.0/3)/1.5275252, norm[1], 1e-6)
	assert.InDelta(t, (-1-1.0/3)/1.5275252, norm[2], 1e-6)
}

func TestBuildSentimentIndexMonthly(t *testing.T) {
	records := []datamodels.TextRecord{
		{Date: time.Date(2021, 1, 31, 23, 0, 0, 0, time.UTC), Headline: "gain"},
		{Date: day(2021, 3, 1), Headline: "worry"},
	}
	out, err := BuildSentimentIndex(records, DefaultPositiveWords(), DefaultNegativeWords(), FrequencyMonthly)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2021, 1, 31), day(2021, 2, 28), day(2021, 3, 31)}, out.Index)
	raw, _ := out.Column(SentimentRawColumn)
	assert.Equal(t, []float64{1, 0, -1}, raw)
}

func TestBuildSentimentIndexConstantScores(t *testing.T) {
	records := []datamodels.TextRecord{
		{Date: day(2020, 1, 10), Headline: "optimism"},
		{Date: day(2020, 4, 10), Headline: "optimism"},
		{Date: day(2020, 7, 10), Headline: "optimism"},
	}
	out, err := BuildSentimentIndex(records, DefaultPositiveWords(), DefaultNegativeWords(), FrequencyQuarterly)
	require.NoError(t, err)
	norm, _ := out.Column(SentimentNormColumn)
	assert.Equal(t, []float64{0, 0, 0}, norm)

	single, err := BuildSentimentIndex(records[:1], DefaultPositiveWords(), DefaultNegativeWords(), FrequencyQuarterly)
	require.NoError(t, err)
	norm, _ = single.Column(SentimentNormColumn)
	assert.Equal(t, []float64{0}, norm)
}

func TestBuildSentimentIndexEdgeCases(t *testing.T) {
	out, err := BuildSentimentIndex(nil, DefaultPositiveWords(), DefaultNegativeWords(), FrequencyQuarterly)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.True(t, out.HasColumn(SentimentNormColumn))

	_, err = BuildSentimentIndex(nil, nil, nil, Frequency("W"))
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestFrequency(t *testing.T) {
	f, err := ParseFrequency(" q ")
	require.NoError(t, err)
	assert.Equal(t, FrequencyQuarterly, f)
	_, err = ParseFrequency("D")
	assert.Error(t, err)

	assert.Equal(t, day(2020, 3, 31), FrequencyQuarterly.PeriodEnd(day(2020, 1, 1)))
	assert.Equal(t, day(2020, 12, 31), FrequencyQuarterly.PeriodEnd(day(2020, 11, 5)))
	assert.Equal(t, day(2020, 2, 29), FrequencyMonthly.PeriodEnd(day(2020, 2, 1)))
	assert.Equal(t, day(2021, 3, 31), FrequencyQuarterly.NextPeriodEnd(day(2020, 12, 31)))
	assert.Equal(t, 12, FrequencyMonthly.PeriodsPerYear())
	assert.Equal(t, 4, FrequencyQuarterly.PeriodsPerYear())
}

func TestAlignToPeriodEnd(t *testing.T) {
	macro, err := datamodels.NewFrame("macro",
		[]time.Time{day(2020, 1, 1), day(2020, 2, 1), day(2020, 4, 1), day(2020, 7, 1)},
		[]string{"x"}, [][]float64{{1, 2, 3, 4}})
	require.NoError(t, err)

	out, err := AlignToPeriodEnd(macro, FrequencyQuarterly)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2020, 3, 31), day(2020, 6, 30), day(2020, 9, 30)}, out.Index)
	assert.Equal(t, []float64{2, 3, 4}, out.Values[0])
}

func TestCombineMacroAndSentiment(t *testing.T) {
	macroFeat, err := datamodels.NewFrame("macro_features",
		[]time.Time{day(2020, 3, 31), day(2020, 6, 30), day(2020, 9, 30)},
		[]string{"a"}, [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	sentiment, err := datamodels.NewFrame("sentiment",
		[]time.Time{day(2020, 6, 30), day(2020, 9, 30), day(2020, 12, 31)},
		[]string{SentimentRawColumn, SentimentNormColumn}, [][]float64{{5, 6, 7}, {0.5, -0.5, 1}})
	require.NoError(t, err)

	out, err := CombineMacroAndSentiment(macroFeat, sentiment)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", SentimentNormColumn}, out.Columns)
	assert.Equal(t, []time.Time{day(2020, 6, 30), day(2020, 9, 30)}, out.Index)
	assert.Equal(t, []float64{0.5, -0.5}, out.Values[1])

	t.Run("no overlap", func(t *testing.T) {
		early, _ := datamodels.NewFrame("sentiment", []time.Time{day(2010, 3, 31)},
			[]string{SentimentNormColumn}, [][]float64{{1}})
		out, err := CombineMacroAndSentiment(macroFeat, early)
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
	})

	t.Run("missing column", func(t *testing.T) {
		bad, _ := datamodels.NewFrame("sentiment", []time.Time{day(2020, 3, 31)}, []string{"other"}, [][]float64{{1}})
		_, err := CombineMacroAndSentiment(macroFeat, bad)
		assert.True(t, errors.Is(err, errors.ErrMissingColumn))
	})
}
