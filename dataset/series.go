package dataset

import (
	"math"
	"sort"
)

// Series is a one-dimensional column of values. A keyed series (the result
// of a grouped aggregation or value_counts) carries an Index of labels
// aligned with its values.
type Series struct {
	Name    string
	Index   []string // empty for positional series
	Numeric bool
	Floats  []float64
	Strings []string
}

// Keyed reports whether the series carries index labels.
func (s *Series) Keyed() bool { return len(s.Index) > 0 }

// Len returns the number of entries, missing values included.
func (s *Series) Len() int {
	if s.Numeric {
		return len(s.Floats)
	}
	return len(s.Strings)
}

// valid returns the non-NaN numeric values.
func (s *Series) valid() []float64 {
	out := make([]float64, 0, len(s.Floats))
	for _, v := range s.Floats {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of non-missing values.
func (s *Series) Count() int {
	if !s.Numeric {
		n := 0
		for _, v := range s.Strings {
			if v != "" {
				n++
			}
		}
		return n
	}
	return len(s.valid())
}

// Mean returns the arithmetic mean of the non-missing values.
func (s *Series) Mean() float64 { return mean(s.valid()) }

// Sum returns the sum of the non-missing values.
func (s *Series) Sum() float64 {
	var total float64
	for _, v := range s.valid() {
		total += v
	}
	return total
}

// Min returns the smallest non-missing value.
func (s *Series) Min() float64 {
	vs := s.valid()
	if len(vs) == 0 {
		return math.NaN()
	}
	out := vs[0]
	for _, v := range vs[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

// Max returns the largest non-missing value.
func (s *Series) Max() float64 {
	vs := s.valid()
	if len(vs) == 0 {
		return math.NaN()
	}
	out := vs[0]
	for _, v := range vs[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

// Variance returns the sample variance of the non-missing values.
func (s *Series) Variance() float64 {
	vs := s.valid()
	if len(vs) < 2 {
		return math.NaN()
	}
	m := mean(vs)
	var acc float64
	for _, v := range vs {
		d := v - m
		acc += d * d
	}
	return acc / float64(len(vs)-1)
}

// Std returns the sample standard deviation.
func (s *Series) Std() float64 { return math.Sqrt(s.Variance()) }

// Median returns the 0.5 quantile.
func (s *Series) Median() float64 { return s.Quantile(0.5) }

// Quantile returns the q-th quantile of the non-missing values using linear
// interpolation between closest ranks.
func (s *Series) Quantile(q float64) float64 {
	vs := s.valid()
	if len(vs) == 0 || q < 0 || q > 1 {
		return math.NaN()
	}
	sort.Float64s(vs)
	pos := q * float64(len(vs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vs[lo]
	}
	frac := pos - float64(lo)
	return vs[lo]*(1-frac) + vs[hi]*frac
}

// Head returns the first n entries.
func (s *Series) Head(n int) *Series { return s.slice(0, n) }

// Tail returns the last n entries.
func (s *Series) Tail(n int) *Series {
	start := s.Len() - n
	if start < 0 {
		start = 0
	}
	return s.slice(start, s.Len())
}

func (s *Series) slice(start, end int) *Series {
	if end > s.Len() {
		end = s.Len()
	}
	if start > end {
		start = end
	}
	out := &Series{Name: s.Name, Numeric: s.Numeric}
	if s.Keyed() {
		out.Index = append([]string(nil), s.Index[start:end]...)
	}
	if s.Numeric {
		out.Floats = append([]float64(nil), s.Floats[start:end]...)
	} else {
		out.Strings = append([]string(nil), s.Strings[start:end]...)
	}
	return out
}

// SortValues returns the series sorted by value.
func (s *Series) SortValues(ascending bool) *Series {
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	less := func(a, b int) bool {
		if s.Numeric {
			return s.Floats[a] < s.Floats[b]
		}
		return s.Strings[a] < s.Strings[b]
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if ascending {
			return less(idx[i], idx[j])
		}
		return less(idx[j], idx[i])
	})
	out := &Series{Name: s.Name, Numeric: s.Numeric}
	for _, i := range idx {
		if s.Keyed() {
			out.Index = append(out.Index, s.Index[i])
		}
		if s.Numeric {
			out.Floats = append(out.Floats, s.Floats[i])
		} else {
			out.Strings = append(out.Strings, s.Strings[i])
		}
	}
	return out
}

// NLargest returns the n entries with the largest values.
func (s *Series) NLargest(n int) *Series { return s.SortValues(false).Head(n) }

// NSmallest returns the n entries with the smallest values.
func (s *Series) NSmallest(n int) *Series { return s.SortValues(true).Head(n) }

// Round returns the series with numeric values rounded to d decimal places.
func (s *Series) Round(d int) *Series {
	if !s.Numeric {
		return s
	}
	scale := math.Pow(10, float64(d))
	out := &Series{Name: s.Name, Numeric: true, Index: s.Index}
	for _, v := range s.Floats {
		out.Floats = append(out.Floats, math.Round(v*scale)/scale)
	}
	return out
}

// IdxMax returns the index label (keyed) or position string of the maximum.
func (s *Series) IdxMax() string { return s.idxAt(false) }

// IdxMin returns the index label (keyed) or position string of the minimum.
func (s *Series) IdxMin() string { return s.idxAt(true) }

func (s *Series) idxAt(min bool) string {
	best := -1
	for i, v := range s.Floats {
		if math.IsNaN(v) {
			continue
		}
		if best == -1 || (min && v < s.Floats[best]) || (!min && v > s.Floats[best]) {
			best = i
		}
	}
	if best == -1 {
		return ""
	}
	return s.Label(best)
}

// Label returns the display label for entry i.
func (s *Series) Label(i int) string {
	if s.Keyed() {
		return s.Index[i]
	}
	return formatFloat(float64(i))
}

// ValueString returns the display text for entry i.
func (s *Series) ValueString(i int) string {
	if s.Numeric {
		return formatFloat(s.Floats[i])
	}
	return s.Strings[i]
}

// ToList returns the values as a plain slice.
func (s *Series) ToList() []any {
	out := make([]any, 0, s.Len())
	if s.Numeric {
		for _, v := range s.Floats {
			out = append(out, v)
		}
	} else {
		for _, v := range s.Strings {
			out = append(out, v)
		}
	}
	return out
}

// Unique returns the distinct values in first-seen order.
func (s *Series) Unique() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < s.Len(); i++ {
		v := s.ValueString(i)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return math.NaN()
	}
	var total float64
	for _, v := range vs {
		total += v
	}
	return total / float64(len(vs))
}
