package features

import (
	"strings"
	"time"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

// Frequency is the period granularity features are aligned to.
type Frequency string

const (
	FrequencyMonthly   Frequency = "M"
	FrequencyQuarterly Frequency = "Q"
)

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

func (f Frequency) Validate() error {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly:
		return nil
	}
	return errors.Wrapf(errors.ErrInvalidConfig, "unknown frequency %q, expected M or Q", string(f))
}

// PeriodsPerYear is the annualisation factor for the frequency.
func (f Frequency) PeriodsPerYear() int {
	if f == FrequencyMonthly {
		return 12
	}
	return 4
}

// PeriodEnd returns midnight UTC of the last calendar day of the period holding t.
func (f Frequency) PeriodEnd(t time.Time) time.Time {
	month := t.Month()
	if f == FrequencyQuarterly {
		month = ((month-1)/3)*3 + 3
	}
	// Day 0 of the following month is the last day of month.
	return time.Date(t.Year(), month+1, 0, 0, 0, 0, 0, time.UTC)
}

// NextPeriodEnd returns the end of the period following the one ending at end.
func (f Frequency) NextPeriodEnd(end time.Time) time.Time {
	return f.PeriodEnd(f.PeriodEnd(end).AddDate(0, 0, 1))
}

// AlignToPeriodEnd re-stamps every row with its period end. When several rows
// fall in the same period the last one (in time order) is kept.
func AlignToPeriodEnd(frame *datamodels.Frame, freq Frequency) (*datamodels.Frame, error) {
	if err := freq.Validate(); err != nil {
		return nil, err
	}
	sorted := frame.Sorted()

	rows := make([]int, 0, sorted.Len())
	index := make([]time.Time, 0, sorted.Len())
	for r, t := range sorted.Index {
		end := freq.PeriodEnd(t)
		if n := len(index); n > 0 && index[n-1].Equal(end) {
			rows[n-1] = r
			continue
		}
		rows = append(rows, r)
		index = append(index, end)
	}

	values := make([][]float64, sorted.Width())
	for c := range sorted.Columns {
		values[c] = make([]float64, len(rows))
		for i, r := range rows {
			values[c][i] = sorted.Values[c][r]
		}
	}
	return datamodels.NewFrame(sorted.Name, index, append([]string(nil), sorted.Columns...), values)
}
