package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Column is a single named column. Numeric columns carry parsed floats with
// NaN marking missing cells; every column keeps its raw text for display.
type Column struct {
	Name    string
	Numeric bool
	Floats  []float64
	Strings []string
}

// Frame is an immutable in-memory table. All operations return new frames or
// series; nothing mutates the receiver, so a frame can be shared read-only
// across concurrent queries.
type Frame struct {
	cols   []*Column
	byName map[string]int
	nrows  int
}

// NewFrame builds a frame from columns. All columns must have equal length.
func NewFrame(cols []*Column) (*Frame, error) {
	f := &Frame{cols: cols, byName: make(map[string]int, len(cols))}
	for i, c := range cols {
		n := len(c.Strings)
		if c.Numeric {
			n = len(c.Floats)
		}
		if i == 0 {
			f.nrows = n
		} else if n != f.nrows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, n, f.nrows)
		}
		if _, dup := f.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		f.byName[c.Name] = i
	}
	return f, nil
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int { return f.nrows }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the frame has a column with the given name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.byName[name]
	return ok
}

func (f *Frame) column(name string) (*Column, error) {
	i, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q (have: %s)", name, strings.Join(f.Columns(), ", "))
	}
	return f.cols[i], nil
}

// Col returns the named column as a series.
func (f *Frame) Col(name string) (*Series, error) {
	c, err := f.column(name)
	if err != nil {
		return nil, err
	}
	s := &Series{Name: c.Name, Numeric: c.Numeric}
	if c.Numeric {
		s.Floats = append([]float64(nil), c.Floats...)
	} else {
		s.Strings = append([]string(nil), c.Strings...)
	}
	return s, nil
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := f.column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return NewFrame(cols)
}

// takeRows builds a new frame from the given row indices.
func (f *Frame) takeRows(idx []int) *Frame {
	cols := make([]*Column, len(f.cols))
	for ci, c := range f.cols {
		nc := &Column{Name: c.Name, Numeric: c.Numeric}
		for _, ri := range idx {
			if c.Numeric {
				nc.Floats = append(nc.Floats, c.Floats[ri])
			}
			if len(c.Strings) > 0 {
				nc.Strings = append(nc.Strings, c.Strings[ri])
			}
		}
		cols[ci] = nc
	}
	out, _ := NewFrame(cols) // indices come from this frame, lengths agree
	return out
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n < 0 {
		n = 0
	}
	if n > f.nrows {
		n = f.nrows
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.takeRows(idx)
}

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame {
	if n < 0 {
		n = 0
	}
	if n > f.nrows {
		n = f.nrows
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = f.nrows - n + i
	}
	return f.takeRows(idx)
}

// SortValues returns the frame sorted by the named column.
func (f *Frame) SortValues(name string, ascending bool) (*Frame, error) {
	c, err := f.column(name)
	if err != nil {
		return nil, err
	}
	idx := make([]int, f.nrows)
	for i := range idx {
		idx[i] = i
	}
	less := func(a, b int) bool {
		if c.Numeric {
			return c.Floats[a] < c.Floats[b]
		}
		return c.Strings[a] < c.Strings[b]
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if ascending {
			return less(idx[i], idx[j])
		}
		return less(idx[j], idx[i])
	})
	return f.takeRows(idx), nil
}

// Filter returns the rows where column op value holds. op is one of
// ==, !=, >, >=, <, <= and contains (string columns only).
func (f *Frame) Filter(name, op string, value any) (*Frame, error) {
	c, err := f.column(name)
	if err != nil {
		return nil, err
	}

	var idx []int
	if c.Numeric {
		want, err := toFloat(value)
		if err != nil {
			return nil, fmt.Errorf("filter on numeric column %q: %w", name, err)
		}
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				continue
			}
			ok := false
			switch op {
			case "==":
				ok = v == want
			case "!=":
				ok = v != want
			case ">":
				ok = v > want
			case ">=":
				ok = v >= want
			case "<":
				ok = v < want
			case "<=":
				ok = v <= want
			default:
				return nil, fmt.Errorf("unsupported filter operator %q for numeric column", op)
			}
			if ok {
				idx = append(idx, i)
			}
		}
		return f.takeRows(idx), nil
	}

	want := fmt.Sprintf("%v", value)
	for i, v := range c.Strings {
		ok := false
		switch op {
		case "==":
			ok = v == want
		case "!=":
			ok = v != want
		case "contains":
			ok = strings.Contains(v, want)
		default:
			return nil, fmt.Errorf("unsupported filter operator %q for string column", op)
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return f.takeRows(idx), nil
}

// NLargest returns the n rows with the largest values in the named column.
func (f *Frame) NLargest(n int, name string) (*Frame, error) {
	sorted, err := f.SortValues(name, false)
	if err != nil {
		return nil, err
	}
	return sorted.Head(n), nil
}

// NSmallest returns the n rows with the smallest values in the named column.
func (f *Frame) NSmallest(n int, name string) (*Frame, error) {
	sorted, err := f.SortValues(name, true)
	if err != nil {
		return nil, err
	}
	return sorted.Head(n), nil
}

// Unique returns the distinct values of the named column in first-seen order.
func (f *Frame) Unique(name string) ([]string, error) {
	c, err := f.column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < f.nrows; i++ {
		v := c.cell(i)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out, nil
}

// ValueCounts returns per-value occurrence counts for the named column,
// sorted by descending count.
func (f *Frame) ValueCounts(name string) (*Series, error) {
	values, err := f.Unique(name)
	if err != nil {
		return nil, err
	}
	c, _ := f.column(name)
	counts := make(map[string]float64, len(values))
	for i := 0; i < f.nrows; i++ {
		counts[c.cell(i)]++
	}
	sort.SliceStable(values, func(i, j int) bool { return counts[values[i]] > counts[values[j]] })
	s := &Series{Name: name, Numeric: true, Index: values}
	for _, v := range values {
		s.Floats = append(s.Floats, counts[v])
	}
	return s, nil
}

// Corr returns the Pearson correlation between two numeric columns.
func (f *Frame) Corr(a, b string) (float64, error) {
	ca, err := f.column(a)
	if err != nil {
		return 0, err
	}
	cb, err := f.column(b)
	if err != nil {
		return 0, err
	}
	if !ca.Numeric || !cb.Numeric {
		return 0, fmt.Errorf("corr requires numeric columns, got %q and %q", a, b)
	}
	var xs, ys []float64
	for i := 0; i < f.nrows; i++ {
		if math.IsNaN(ca.Floats[i]) || math.IsNaN(cb.Floats[i]) {
			continue
		}
		xs = append(xs, ca.Floats[i])
		ys = append(ys, cb.Floats[i])
	}
	if len(xs) < 2 {
		return math.NaN(), nil
	}
	mx, my := mean(xs), mean(ys)
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN(), nil
	}
	return cov / math.Sqrt(vx*vy), nil
}

// Describe returns summary statistics (count, mean, std, min, median, max)
// for every numeric column, one row per statistic.
func (f *Frame) Describe() *Frame {
	statNames := []string{"count", "mean", "std", "min", "median", "max"}
	statCol := &Column{Name: "stat", Strings: statNames}
	cols := []*Column{statCol}
	for _, c := range f.cols {
		if !c.Numeric {
			continue
		}
		s := &Series{Name: c.Name, Numeric: true, Floats: c.Floats}
		cols = append(cols, &Column{
			Name:    c.Name,
			Numeric: true,
			Floats: []float64{
				float64(s.Count()), s.Mean(), s.Std(), s.Min(), s.Median(), s.Max(),
			},
		})
	}
	out, _ := NewFrame(cols)
	return out
}

// GroupBy groups rows by the distinct values of the named column.
func (f *Frame) GroupBy(name string) (*GroupBy, error) {
	c, err := f.column(name)
	if err != nil {
		return nil, err
	}
	rowIdx := make(map[string][]int)
	var keys []string
	for i := 0; i < f.nrows; i++ {
		key := c.cell(i)
		if _, ok := rowIdx[key]; !ok {
			keys = append(keys, key)
		}
		rowIdx[key] = append(rowIdx[key], i)
	}
	sort.Strings(keys) // deterministic group order
	return &GroupBy{frame: f, keyColumn: name, keys: keys, rowIdx: rowIdx}, nil
}

// CellString returns the display text for the cell at row r, column c.
func (f *Frame) CellString(r, c int) string {
	return f.cols[c].cell(r)
}

func (c *Column) cell(i int) string {
	if len(c.Strings) > 0 {
		return c.Strings[i]
	}
	return formatFloat(c.Floats[i])
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", value, value)
	}
}
