package datamodels

import (
	"time"

	"macrocopilot/src/utils/errors"
)

// Series is a time-indexed scalar series.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

func NewSeries(name string, index []time.Time, values []float64) (*Series, error) {
	if len(index) != len(values) {
		return nil, errors.Wrapf(errors.ErrLengthMismatch, "series %s has %d values for %d timestamps", name, len(values), len(index))
	}
	return &Series{Name: name, Index: index, Values: values}, nil
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// RegimeSeries holds one regime label per timestamp.
type RegimeSeries struct {
	Name   string
	Index  []time.Time
	Values []Regime
}

func NewRegimeSeries(name string, index []time.Time, values []Regime) (*RegimeSeries, error) {
	if len(index) != len(values) {
		return nil, errors.Wrapf(errors.ErrLengthMismatch, "regime series %s has %d labels for %d timestamps", name, len(values), len(index))
	}
	return &RegimeSeries{Name: name, Index: index, Values: values}, nil
}

func (s *RegimeSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// Counts returns how many times each regime occurs.
func (s *RegimeSeries) Counts() map[Regime]int {
	counts := make(map[Regime]int)
	for _, r := range s.Values {
		counts[r]++
	}
	return counts
}

// TextRecord is one dated headline.
type TextRecord struct {
	Date     time.Time
	Headline string
}
