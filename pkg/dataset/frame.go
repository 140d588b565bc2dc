// Package dataset holds the tabular representation shared by training and
// serving: a column-ordered frame of loosely typed cells.
package dataset

import (
	"math"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

var (
	ErrRaggedRows    = errors.New("rows have inconsistent lengths")
	ErrUnknownColumn = errors.New("unknown column")
	ErrDuplicate     = errors.New("duplicate column")
	ErrMissingValue  = errors.New("missing value")
)

// ColumnType is the kind of values a column holds.
type ColumnType int

const (
	Text ColumnType = iota
	Numeric
)

// Frame is a column-oriented table with ordered, named columns. Cells are
// float64, string or nil (missing). Columns may carry a declared type, which
// wins over what the cells suggest.
type Frame struct {
	columns []string
	index   map[string]int
	data    [][]any
	rows    int
	types   map[string]ColumnType
}

// New builds a frame from row-major values. Every row must have exactly one
// cell per column.
func New(columns []string, rows [][]any) (*Frame, error) {
	data := make([][]any, len(columns))
	for j := range data {
		data[j] = make([]any, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.Wrapf(ErrRaggedRows, "row %d has %d cells, expected %d", i, len(row), len(columns))
		}
		for j, v := range row {
			data[j][i] = normalize(v)
		}
	}
	return fromData(columns, data, len(rows))
}

// FromColumns builds a frame from column-major values.
func FromColumns(columns []string, values [][]any) (*Frame, error) {
	if len(columns) != len(values) {
		return nil, errors.Errorf("got %d column names for %d columns", len(columns), len(values))
	}
	rows := 0
	if len(values) > 0 {
		rows = len(values[0])
	}
	data := make([][]any, len(values))
	for j, col := range values {
		if len(col) != rows {
			return nil, errors.Wrapf(ErrRaggedRows, "column %q has %d rows, expected %d", columns[j], len(col), rows)
		}
		data[j] = make([]any, rows)
		for i, v := range col {
			data[j][i] = normalize(v)
		}
	}
	return fromData(columns, data, rows)
}

// Empty returns a frame with no columns and the given row count.
func Empty(rows int) *Frame {
	return &Frame{index: map[string]int{}, rows: rows}
}

func fromData(columns []string, data [][]any, rows int) (*Frame, error) {
	index := make(map[string]int, len(columns))
	for j, name := range columns {
		if _, ok := index[name]; ok {
			return nil, errors.Wrap(ErrDuplicate, name)
		}
		index[name] = j
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{columns: cols, index: index, data: data, rows: rows}, nil
}

// normalize folds every numeric Go type into float64 so that downstream
// transforms only deal with float64, string and nil.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return t
	case float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64(t)
	case bool:
		if t {
			return 1.0
		}
		return 0.0
	default:
		return cast.ToString(t)
	}
}

// IsMissing reports whether a cell holds no value.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}

func (f *Frame) NumRows() int { return f.rows }

func (f *Frame) NumCols() int { return len(f.columns) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]any, bool) {
	j, ok := f.index[name]
	if !ok {
		return nil, false
	}
	out := make([]any, f.rows)
	copy(out, f.data[j])
	return out, true
}

// Value returns a single cell, nil when the column is unknown.
func (f *Frame) Value(row int, name string) any {
	j, ok := f.index[name]
	if !ok {
		return nil
	}
	return f.data[j][row]
}

// Row returns the cells of one row keyed by column name.
func (f *Frame) Row(i int) map[string]any {
	out := make(map[string]any, len(f.columns))
	for j, name := range f.columns {
		out[name] = f.data[j][i]
	}
	return out
}

// Records returns the frame as row-major values in column order.
func (f *Frame) Records() [][]any {
	out := make([][]any, f.rows)
	for i := range out {
		row := make([]any, len(f.columns))
		for j := range f.columns {
			row[j] = f.data[j][i]
		}
		out[i] = row
	}
	return out
}

// WithTypes returns the frame with declared column types. Declarations survive
// Select, Drop, WithColumn and Take.
func (f *Frame) WithTypes(types map[string]ColumnType) (*Frame, error) {
	for name := range types {
		if !f.Has(name) {
			return nil, errors.Wrap(ErrUnknownColumn, name)
		}
	}
	out := *f
	out.types = make(map[string]ColumnType, len(f.types)+len(types))
	for name, t := range f.types {
		out.types[name] = t
	}
	for name, t := range types {
		out.types[name] = t
	}
	return &out, nil
}

// Type returns the declared type of a column. Undeclared columns are Numeric
// when they hold at least one value and every value is a float64.
func (f *Frame) Type(name string) ColumnType {
	if t, ok := f.types[name]; ok {
		return t
	}
	j, ok := f.index[name]
	if !ok {
		return Text
	}
	seen := false
	for _, v := range f.data[j] {
		if IsMissing(v) {
			continue
		}
		if _, ok := v.(float64); !ok {
			return Text
		}
		seen = true
	}
	if seen {
		return Numeric
	}
	return Text
}

// keepTypes copies the declarations of f that still name a column of out.
func (f *Frame) keepTypes(out *Frame) *Frame {
	if out == nil || len(f.types) == 0 {
		return out
	}
	out.types = make(map[string]ColumnType, len(f.types))
	for name, t := range f.types {
		if out.Has(name) {
			out.types[name] = t
		}
	}
	return out
}

// Select returns a frame restricted to the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	data := make([][]any, len(names))
	for k, name := range names {
		j, ok := f.index[name]
		if !ok {
			return nil, errors.Wrap(ErrUnknownColumn, name)
		}
		data[k] = f.data[j]
	}
	out, err := fromData(names, data, f.rows)
	return f.keepTypes(out), err
}

// Drop returns a frame without the named columns. Absent names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	var cols []string
	var data [][]any
	for j, name := range f.columns {
		if drop[name] {
			continue
		}
		cols = append(cols, name)
		data = append(data, f.data[j])
	}
	out, _ := fromData(cols, data, f.rows)
	return f.keepTypes(out)
}

// WithColumn returns a frame where the named column is replaced, or appended
// when it does not exist yet.
func (f *Frame) WithColumn(name string, values []any) (*Frame, error) {
	if len(values) != f.rows {
		return nil, errors.Wrapf(ErrRaggedRows, "column %q has %d rows, expected %d", name, len(values), f.rows)
	}
	col := make([]any, len(values))
	for i, v := range values {
		col[i] = normalize(v)
	}
	cols := f.Columns()
	data := make([][]any, len(f.data))
	copy(data, f.data)
	if j, ok := f.index[name]; ok {
		data[j] = col
	} else {
		cols = append(cols, name)
		data = append(data, col)
	}
	out, err := fromData(cols, data, f.rows)
	return f.keepTypes(out), err
}

// Take returns the rows at the given indices, in that order.
func (f *Frame) Take(indices []int) *Frame {
	data := make([][]any, len(f.columns))
	for j := range f.columns {
		col := make([]any, len(indices))
		for k, i := range indices {
			col[k] = f.data[j][i]
		}
		data[j] = col
	}
	out, _ := fromData(f.columns, data, len(indices))
	return f.keepTypes(out)
}

// Float64s returns the named column as numbers. Missing cells and text that
// does not parse as a number are errors.
func (f *Frame) Float64s(name string) ([]float64, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownColumn, name)
	}
	out := make([]float64, f.rows)
	for i, v := range f.data[j] {
		if IsMissing(v) {
			return nil, errors.Wrapf(ErrMissingValue, "column %q row %d", name, i)
		}
		x, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q row %d", name, i)
		}
		out[i] = x
	}
	return out, nil
}
