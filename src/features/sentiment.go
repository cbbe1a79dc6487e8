package features

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"macrocopilot/src/datamodels"
)

const (
	SentimentRawColumn  = "sentiment_raw"
	SentimentNormColumn = "sentiment_norm"
)

// Lexicon maps a lowercase token to the score it adds to a headline.
type Lexicon map[string]float64

var tokenPattern = regexp.MustCompile(`[a-z']+`)

func DefaultPositiveWords() Lexicon {
	return Lexicon{
		"strong":     1,
		"growth":     1,
		"robust":     1,
		"optimism":   1,
		"record":     1,
		"confidence": 1,
		"positive":   1,
		"rally":      1,
		"gain":       1,
	}
}

func DefaultNegativeWords() Lexicon {
	return Lexicon{
		"recession":  -1,
		"slowdown":   -1,
		"tension":    -1,
		"fear":       -1,
		"volatility": -1,
		"panic":      -1,
		"crisis":     -1,
		"worry":      -1,
	}
}

// Tokenize lowercases text and returns its alphabetic tokens, apostrophes included.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// ScoreHeadline sums the lexicon weights of every token. A token found in both
// lexicons contributes both weights.
func ScoreHeadline(headline string, positive, negative Lexicon) float64 {
	score := 0.0
	for _, tok := range Tokenize(headline) {
		if w, ok := positive[tok]; ok {
			score += w
		}
		if w, ok := negative[tok]; ok {
			score += w
		}
	}
	return score
}

// BuildSentimentIndex scores every headline, sums the scores per day and then
// per period, and z-scores the period totals. Periods without headlines between
// the first and last observation count as a raw score of 0.
func BuildSentimentIndex(records []datamodels.TextRecord, positive, negative Lexicon, freq Frequency) (*datamodels.Frame, error) {
	if err := freq.Validate(); err != nil {
		return nil, err
	}
	columns := []string{SentimentRawColumn, SentimentNormColumn}
	if len(records) == 0 {
		return datamodels.EmptyFrame("sentiment", columns), nil
	}

	daily := make(map[time.Time]float64)
	for _, rec := range records {
		day := time.Date(rec.Date.Year(), rec.Date.Month(), rec.Date.Day(), 0, 0, 0, 0, time.UTC)
		daily[day] += ScoreHeadline(rec.Headline, positive, negative)
	}
	days := make([]time.Time, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	periodTotals := make(map[time.Time]float64)
	for _, day := range days {
		periodTotals[freq.PeriodEnd(day)] += daily[day]
	}

	index := make([]time.Time, 0)
	raw := make([]float64, 0)
	last := freq.PeriodEnd(days[len(days)-1])
	for end := freq.PeriodEnd(days[0]); !end.After(last); end = freq.NextPeriodEnd(end) {
		index = append(index, end)
		raw = append(raw, periodTotals[end])
	}

	norm, err := zScore(raw)
	if err != nil {
		return nil, err
	}
	slog.Debug("Built sentiment index", "headlines", len(records), "days", len(days), "periods", len(index))
	return datamodels.NewFrame("sentiment", index, columns, [][]float64{raw, norm})
}

// zScore centres vals on their mean and divides by the sample standard
// deviation, or by 1 when that is zero or undefined.
func zScore(vals []float64) ([]float64, error) {
	mean, err := stats.Mean(vals)
	if err != nil {
		return nil, err
	}
	sd := 1.0
	if len(vals) > 1 {
		s, err := stats.StandardDeviationSample(vals)
		if err != nil {
			return nil, err
		}
		if s != 0 && !math.IsNaN(s) {
			sd = s
		}
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = (v - mean) / sd
	}
	return out, nil
}
