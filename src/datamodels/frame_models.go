package datamodels

import (
	"fmt"
	"math"
	"sort"
	"time"

	"macrocopilot/src/utils/errors"
)

// Frame is a time-indexed table of float columns. Values are stored column-major:
// Values[c][r] is column c at row r. NaN marks an unresolved value.
//
// Frames are treated as immutable; every operation returns a fresh frame.
type Frame struct {
	Name    string
	Index   []time.Time
	Columns []string
	Values  [][]float64
}

func NewFrame(name string, index []time.Time, columns []string, values [][]float64) (*Frame, error) {
	if len(columns) != len(values) {
		return nil, errors.Wrapf(errors.ErrLengthMismatch, "frame %s has %d column names but %d columns", name, len(columns), len(values))
	}
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if seen[col] {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "frame %s has duplicate column %q", name, col)
		}
		seen[col] = true
		if len(values[i]) != len(index) {
			return nil, errors.Wrapf(errors.ErrLengthMismatch, "frame %s column %q has %d rows, index has %d", name, col, len(values[i]), len(index))
		}
	}
	return &Frame{Name: name, Index: index, Columns: columns, Values: values}, nil
}

// EmptyFrame returns a frame with the given columns and no rows.
func EmptyFrame(name string, columns []string) *Frame {
	values := make([][]float64, len(columns))
	for i := range values {
		values[i] = []float64{}
	}
	return &Frame{Name: name, Index: []time.Time{}, Columns: append([]string(nil), columns...), Values: values}
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return len(f.Columns)
}

func (f *Frame) ColumnIndex(name string) int {
	for i, col := range f.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

func (f *Frame) HasColumn(name string) bool {
	return f.ColumnIndex(name) >= 0
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	i := f.ColumnIndex(name)
	if i < 0 {
		return nil, errors.MissingColumn(f.describe(), name)
	}
	return append([]float64(nil), f.Values[i]...), nil
}

// Row returns row r across all columns, in column order.
func (f *Frame) Row(r int) []float64 {
	row := make([]float64, len(f.Columns))
	for c := range f.Columns {
		row[c] = f.Values[c][r]
	}
	return row
}

// Select returns a frame with exactly the given columns, in the given order.
// Every requested column must exist.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	values := make([][]float64, len(columns))
	for i, col := range columns {
		c := f.ColumnIndex(col)
		if c < 0 {
			return nil, errors.MissingColumn(f.describe(), col)
		}
		values[i] = append([]float64(nil), f.Values[c]...)
	}
	return NewFrame(f.Name, append([]time.Time(nil), f.Index...), append([]string(nil), columns...), values)
}

func (f *Frame) IsSorted() bool {
	for i := 1; i < len(f.Index); i++ {
		if f.Index[i].Before(f.Index[i-1]) {
			return false
		}
	}
	return true
}

// Sorted returns the frame ordered by time ascending. Rows with equal
// timestamps keep their relative order.
func (f *Frame) Sorted() *Frame {
	order := make([]int, len(f.Index))
	for i := range order {
		order[i] = i
	}
	if !f.IsSorted() {
		sort.SliceStable(order, func(a, b int) bool {
			return f.Index[order[a]].Before(f.Index[order[b]])
		})
	}
	return f.take(order)
}

// InnerJoin keeps the timestamps present in both frames, in f's row order,
// with f's columns followed by other's. Overlapping column names are rejected.
func (f *Frame) InnerJoin(other *Frame) (*Frame, error) {
	for _, col := range other.Columns {
		if f.HasColumn(col) {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "column %q present in both %s and %s", col, f.describe(), other.describe())
		}
	}
	left, right := JoinIndex(f.Index, other.Index)

	columns := append(append([]string(nil), f.Columns...), other.Columns...)
	values := make([][]float64, 0, len(columns))
	for c := range f.Columns {
		values = append(values, pick(f.Values[c], left))
	}
	for c := range other.Columns {
		values = append(values, pick(other.Values[c], right))
	}
	index := make([]time.Time, len(left))
	for i, r := range left {
		index[i] = f.Index[r]
	}
	return NewFrame(f.Name, index, columns, values)
}

// DropNA removes every row holding a NaN in any column.
func (f *Frame) DropNA() *Frame {
	keep := make([]int, 0, len(f.Index))
	for r := range f.Index {
		complete := true
		for c := range f.Columns {
			if math.IsNaN(f.Values[c][r]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, r)
		}
	}
	return f.take(keep)
}

// CountNaN returns the number of NaN cells in the frame.
func (f *Frame) CountNaN() int {
	n := 0
	for c := range f.Columns {
		for _, v := range f.Values[c] {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

func (f *Frame) take(rows []int) *Frame {
	index := make([]time.Time, len(rows))
	for i, r := range rows {
		index[i] = f.Index[r]
	}
	values := make([][]float64, len(f.Columns))
	for c := range f.Columns {
		values[c] = pick(f.Values[c], rows)
	}
	return &Frame{Name: f.Name, Index: index, Columns: append([]string(nil), f.Columns...), Values: values}
}

func (f *Frame) describe() string {
	if f.Name == "" {
		return "frame"
	}
	return fmt.Sprintf("frame %s", f.Name)
}

// JoinIndex returns the positions of the timestamps common to both indexes,
// following left's order. A right timestamp appearing more than once matches
// its first occurrence.
func JoinIndex(left, right []time.Time) ([]int, []int) {
	positions := make(map[int64]int, len(right))
	for i, t := range right {
		key := t.UnixNano()
		if _, ok := positions[key]; !ok {
			positions[key] = i
		}
	}
	li := make([]int, 0)
	ri := make([]int, 0)
	for i, t := range left {
		if j, ok := positions[t.UnixNano()]; ok {
			li = append(li, i)
			ri = append(ri, j)
		}
	}
	return li, ri
}

func pick(vals []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = vals[r]
	}
	return out
}
