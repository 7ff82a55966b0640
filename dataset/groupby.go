package dataset

import (
	"fmt"
	"math"
)

// GroupBy is the result of grouping a frame by one column's distinct values.
// Group keys are sorted.
type GroupBy struct {
	frame     *Frame
	keyColumn string
	keys      []string
	rowIdx    map[string][]int
}

// Keys returns the sorted group keys.
func (g *GroupBy) Keys() []string { return g.keys }

// KeyColumn returns the name of the grouping column.
func (g *GroupBy) KeyColumn() string { return g.keyColumn }

// Size returns the number of rows per group as a keyed series.
func (g *GroupBy) Size() *Series {
	s := &Series{Name: "count", Numeric: true, Index: g.keys}
	for _, k := range g.keys {
		s.Floats = append(s.Floats, float64(len(g.rowIdx[k])))
	}
	return s
}

// Col selects one column for per-group aggregation.
func (g *GroupBy) Col(name string) (*GroupedColumn, error) {
	c, err := g.frame.column(name)
	if err != nil {
		return nil, err
	}
	if !c.Numeric {
		return nil, fmt.Errorf("column %q is not numeric and cannot be aggregated", name)
	}
	gc := &GroupedColumn{name: name, keys: g.keys}
	for _, k := range g.keys {
		var vals []float64
		for _, ri := range g.rowIdx[k] {
			if v := c.Floats[ri]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		gc.groups = append(gc.groups, vals)
	}
	return gc, nil
}

// GroupedColumn is one numeric column split into per-key value slices.
type GroupedColumn struct {
	name   string
	keys   []string
	groups [][]float64
}

func (gc *GroupedColumn) aggregate(name string, fn func([]float64) float64) *Series {
	s := &Series{Name: name, Numeric: true, Index: gc.keys}
	for _, vals := range gc.groups {
		s.Floats = append(s.Floats, fn(vals))
	}
	return s
}

// Mean returns the per-group mean as a keyed series.
func (gc *GroupedColumn) Mean() *Series {
	return gc.aggregate(gc.name, mean)
}

// Sum returns the per-group sum.
func (gc *GroupedColumn) Sum() *Series {
	return gc.aggregate(gc.name, func(vs []float64) float64 {
		var total float64
		for _, v := range vs {
			total += v
		}
		return total
	})
}

// Count returns the per-group count of non-missing values.
func (gc *GroupedColumn) Count() *Series {
	return gc.aggregate(gc.name, func(vs []float64) float64 { return float64(len(vs)) })
}

// Min returns the per-group minimum.
func (gc *GroupedColumn) Min() *Series {
	return gc.aggregate(gc.name, func(vs []float64) float64 {
		s := Series{Numeric: true, Floats: vs}
		return s.Min()
	})
}

// Max returns the per-group maximum.
func (gc *GroupedColumn) Max() *Series {
	return gc.aggregate(gc.name, func(vs []float64) float64 {
		s := Series{Numeric: true, Floats: vs}
		return s.Max()
	})
}

// Std returns the per-group sample standard deviation.
func (gc *GroupedColumn) Std() *Series {
	return gc.aggregate(gc.name, func(vs []float64) float64 {
		s := Series{Numeric: true, Floats: vs}
		return s.Std()
	})
}

// Median returns the per-group median.
func (gc *GroupedColumn) Median() *Series {
	return gc.aggregate(gc.name, func(vs []float64) float64 {
		s := Series{Numeric: true, Floats: vs}
		return s.Median()
	})
}

// Agg applies a named aggregation: mean, sum, count, min, max, std, median.
func (gc *GroupedColumn) Agg(op string) (*Series, error) {
	switch op {
	case "mean":
		return gc.Mean(), nil
	case "sum":
		return gc.Sum(), nil
	case "count":
		return gc.Count(), nil
	case "min":
		return gc.Min(), nil
	case "max":
		return gc.Max(), nil
	case "std":
		return gc.Std(), nil
	case "median":
		return gc.Median(), nil
	default:
		return nil, fmt.Errorf("unsupported aggregation %q", op)
	}
}
