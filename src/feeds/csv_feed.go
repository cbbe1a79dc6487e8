package feeds

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

const DefaultDateColumn = "date"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// ParseDate accepts the date layouts found in macro, market and news exports.
// Dates without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// CsvFrameFeed reads a `date,<col>,<col>...` file into a Frame.
type CsvFrameFeed struct {
	filePath   string
	name       string
	dateColumn string
	columns    []string
	startTime  time.Time
	endTime    time.Time
}

type CsvFrameFeedBuilder struct {
	filePath   string
	name       string
	dateColumn string
	columns    []string
	startTime  *time.Time
	endTime    *time.Time
}

func NewCsvFrameFeedBuilder(filePath string) *CsvFrameFeedBuilder {
	return &CsvFrameFeedBuilder{
		filePath:   filePath,
		dateColumn: DefaultDateColumn,
	}
}

func (b *CsvFrameFeedBuilder) WithName(name string) *CsvFrameFeedBuilder {
	b.name = name
	return b
}

func (b *CsvFrameFeedBuilder) WithDateColumn(dateColumn string) *CsvFrameFeedBuilder {
	if dateColumn != "" {
		b.dateColumn = dateColumn
	}
	return b
}

// WithColumns restricts the frame to the given value columns, in that order.
func (b *CsvFrameFeedBuilder) WithColumns(columns ...string) *CsvFrameFeedBuilder {
	b.columns = columns
	return b
}

func (b *CsvFrameFeedBuilder) WithStartTime(startTime time.Time) *CsvFrameFeedBuilder {
	b.startTime = &startTime
	return b
}

func (b *CsvFrameFeedBuilder) WithEndTime(endTime time.Time) *CsvFrameFeedBuilder {
	b.endTime = &endTime
	return b
}

func (b *CsvFrameFeedBuilder) Build() (*CsvFrameFeed, error) {
	if b.filePath == "" {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "csv file path is required")
	}
	feed := &CsvFrameFeed{
		filePath:   b.filePath,
		name:       b.name,
		dateColumn: b.dateColumn,
		columns:    b.columns,
	}
	if feed.name == "" {
		feed.name = strings.TrimSuffix(filepath.Base(b.filePath), filepath.Ext(b.filePath))
	}
	if b.startTime != nil {
		feed.startTime = *b.startTime
	}
	if b.endTime != nil {
		if b.startTime != nil && b.endTime.Before(*b.startTime) {
			return nil, errors.Wrap(errors.ErrInvalidConfig, "end time is before start time")
		}
		feed.endTime = *b.endTime
	}
	return feed, nil
}

func (c *CsvFrameFeed) GetName() string {
	return c.name
}

// Load reads the whole file. Empty cells and NaN/NA markers become NaN.
// The result is sorted by date.
func (c *CsvFrameFeed) Load() (*datamodels.Frame, error) {
	file, err := os.Open(c.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file at %s: %w", c.filePath, err)
	}
	defer file.Close()
	return c.read(file)
}

func (c *CsvFrameFeed) read(r io.Reader) (*datamodels.Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header of %s: %w", c.name, err)
	}

	dateIdx := -1
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == c.dateColumn {
			dateIdx = i
			continue
		}
		positions[h] = i
	}
	if dateIdx < 0 {
		return nil, errors.MissingColumn(c.name, c.dateColumn)
	}

	columns := c.columns
	if len(columns) == 0 {
		for i, h := range header {
			if i != dateIdx {
				columns = append(columns, strings.TrimSpace(h))
			}
		}
	}
	sources := make([]int, len(columns))
	for i, col := range columns {
		pos, ok := positions[col]
		if !ok {
			return nil, errors.MissingColumn(c.name, col)
		}
		sources[i] = pos
	}

	index := make([]time.Time, 0)
	values := make([][]float64, len(columns))
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d of %s: %w", line, c.name, err)
		}
		ts, err := ParseDate(record[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d of %s: %w", line, c.name, err)
		}
		if !c.startTime.IsZero() && ts.Before(c.startTime) {
			continue
		}
		if !c.endTime.IsZero() && ts.After(c.endTime) {
			continue
		}
		index = append(index, ts)
		for i, pos := range sources {
			v, err := parseCell(record[pos])
			if err != nil {
				return nil, fmt.Errorf("line %d of %s, column %s: %w", line, c.name, columns[i], err)
			}
			values[i] = append(values[i], v)
		}
	}
	for i := range values {
		if values[i] == nil {
			values[i] = []float64{}
		}
	}

	frame, err := datamodels.NewFrame(c.name, index, columns, values)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded CSV frame", "name", c.name, "rows", frame.Len(), "columns", frame.Width())
	return frame.Sorted(), nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "n/a", "null", ".":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// LoadTextRecords reads a `date,headline` file. Rows with an empty headline are kept.
func LoadTextRecords(filePath, dateColumn, textColumn string) ([]datamodels.TextRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file at %s: %w", filePath, err)
	}
	defer file.Close()
	return readTextRecords(file, filePath, dateColumn, textColumn)
}

func readTextRecords(r io.Reader, name, dateColumn, textColumn string) ([]datamodels.TextRecord, error) {
	if dateColumn == "" {
		dateColumn = DefaultDateColumn
	}
	if textColumn == "" {
		textColumn = "headline"
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header of %s: %w", name, err)
	}
	dateIdx, textIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case dateColumn:
			dateIdx = i
		case textColumn:
			textIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, errors.MissingColumn(name, dateColumn)
	}
	if textIdx < 0 {
		return nil, errors.MissingColumn(name, textColumn)
	}

	records := make([]datamodels.TextRecord, 0)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d of %s: %w", line, name, err)
		}
		if dateIdx >= len(row) {
			return nil, fmt.Errorf("line %d of %s has no date", line, name)
		}
		ts, err := ParseDate(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d of %s: %w", line, name, err)
		}
		headline := ""
		if textIdx < len(row) {
			headline = row[textIdx]
		}
		records = append(records, datamodels.TextRecord{Date: ts, Headline: headline})
	}
	slog.Debug("Loaded text records", "file", name, "records", len(records))
	return records, nil
}
