package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := NewFrame([]*Column{
		{Name: "student_name", Strings: []string{"Ada", "Ben", "Cleo", "Dan", "Eve", "Fay"}},
		{Name: "course_name", Strings: []string{"Go", "Go", "SQL", "SQL", "SQL", "Go"}},
		{Name: "score", Numeric: true, Floats: []float64{90, 70, 80, 60, 100, 85}},
		{Name: "completion_rate", Numeric: true, Floats: []float64{0.9, 0.7, 0.8, 0.6, 1.0, 0.85}},
	})
	require.NoError(t, err)
	return f
}

func TestNewFrame(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		f := studentFrame(t)
		assert.Equal(t, 6, f.NumRows())
		assert.Equal(t, 4, f.NumCols())
		assert.Equal(t, []string{"student_name", "course_name", "score", "completion_rate"}, f.Columns())
	})

	t.Run("RaggedColumnsRejected", func(t *testing.T) {
		_, err := NewFrame([]*Column{
			{Name: "a", Strings: []string{"x", "y"}},
			{Name: "b", Strings: []string{"x"}},
		})
		assert.Error(t, err)
	})

	t.Run("DuplicateNamesRejected", func(t *testing.T) {
		_, err := NewFrame([]*Column{
			{Name: "a", Strings: []string{"x"}},
			{Name: "a", Strings: []string{"y"}},
		})
		assert.Error(t, err)
	})
}

func TestFrameCol(t *testing.T) {
	f := studentFrame(t)

	s, err := f.Col("score")
	require.NoError(t, err)
	assert.True(t, s.Numeric)
	assert.InDelta(t, 80.8333, s.Mean(), 1e-4)

	_, err = f.Col("no_such_column")
	assert.Error(t, err)
}

func TestFrameSortValues(t *testing.T) {
	f := studentFrame(t)

	t.Run("Descending", func(t *testing.T) {
		sorted, err := f.SortValues("score", false)
		require.NoError(t, err)
		assert.Equal(t, "Eve", sorted.CellString(0, 0))
		assert.Equal(t, "Dan", sorted.CellString(5, 0))
	})

	t.Run("Ascending", func(t *testing.T) {
		sorted, err := f.SortValues("score", true)
		require.NoError(t, err)
		assert.Equal(t, "Dan", sorted.CellString(0, 0))
	})

	t.Run("OriginalUntouched", func(t *testing.T) {
		_, err := f.SortValues("score", true)
		require.NoError(t, err)
		assert.Equal(t, "Ada", f.CellString(0, 0))
	})
}

func TestFrameFilter(t *testing.T) {
	f := studentFrame(t)

	t.Run("NumericGreaterThan", func(t *testing.T) {
		out, err := f.Filter("score", ">", 80.0)
		require.NoError(t, err)
		assert.Equal(t, 3, out.NumRows())
	})

	t.Run("StringEquality", func(t *testing.T) {
		out, err := f.Filter("course_name", "==", "Go")
		require.NoError(t, err)
		assert.Equal(t, 3, out.NumRows())
	})

	t.Run("UnknownOperator", func(t *testing.T) {
		_, err := f.Filter("score", "~", 1.0)
		assert.Error(t, err)
	})
}

func TestFrameNLargest(t *testing.T) {
	f := studentFrame(t)
	top, err := f.NLargest(2, "score")
	require.NoError(t, err)
	require.Equal(t, 2, top.NumRows())
	assert.Equal(t, "Eve", top.CellString(0, 0))
	assert.Equal(t, "Ada", top.CellString(1, 0))
}

func TestFrameGroupBy(t *testing.T) {
	f := studentFrame(t)
	g, err := f.GroupBy("course_name")
	require.NoError(t, err)

	t.Run("KeysSorted", func(t *testing.T) {
		assert.Equal(t, []string{"Go", "SQL"}, g.Keys())
	})

	t.Run("KeyColumn", func(t *testing.T) {
		assert.Equal(t, "course_name", g.KeyColumn())
	})

	t.Run("MeanPerGroup", func(t *testing.T) {
		gc, err := g.Col("score")
		require.NoError(t, err)
		means := gc.Mean()
		assert.True(t, means.Keyed())
		assert.Equal(t, []string{"Go", "SQL"}, means.Index)
		assert.InDelta(t, (90.0+70+85)/3, means.Floats[0], 1e-9)
		assert.InDelta(t, 80.0, means.Floats[1], 1e-9)
	})

	t.Run("Size", func(t *testing.T) {
		size := g.Size()
		assert.Equal(t, []float64{3, 3}, size.Floats)
	})

	t.Run("AggDispatch", func(t *testing.T) {
		gc, err := g.Col("score")
		require.NoError(t, err)
		for _, op := range []string{"mean", "sum", "count", "min", "max", "std", "median"} {
			s, err := gc.Agg(op)
			require.NoError(t, err, op)
			assert.Equal(t, 2, s.Len(), op)
		}
		_, err = gc.Agg("mode")
		assert.Error(t, err)
	})

	t.Run("NonNumericColumnRejected", func(t *testing.T) {
		_, err := g.Col("student_name")
		assert.Error(t, err)
	})
}

func TestFrameValueCounts(t *testing.T) {
	f := studentFrame(t)
	s, err := f.ValueCounts("course_name")
	require.NoError(t, err)
	assert.True(t, s.Keyed())
	assert.Equal(t, 2, s.Len())
	// both courses appear three times, ties broken by name
	assert.Equal(t, []float64{3, 3}, s.Floats)
}

func TestFrameCorr(t *testing.T) {
	f := studentFrame(t)
	r, err := f.Corr("score", "completion_rate")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-9)

	_, err = f.Corr("score", "course_name")
	assert.Error(t, err)
}

func TestFrameHeadTail(t *testing.T) {
	f := studentFrame(t)
	assert.Equal(t, 2, f.Head(2).NumRows())
	assert.Equal(t, 2, f.Tail(2).NumRows())
	assert.Equal(t, "Eve", f.Tail(2).CellString(0, 0))
	assert.Equal(t, 6, f.Head(100).NumRows())
}

func TestSeriesStatistics(t *testing.T) {
	s := &Series{Name: "v", Numeric: true, Floats: []float64{1, 2, 3, 4, math.NaN()}}

	assert.Equal(t, 4, s.Count())
	assert.InDelta(t, 2.5, s.Mean(), 1e-9)
	assert.InDelta(t, 10.0, s.Sum(), 1e-9)
	assert.InDelta(t, 1.0, s.Min(), 1e-9)
	assert.InDelta(t, 4.0, s.Max(), 1e-9)
	assert.InDelta(t, 2.5, s.Median(), 1e-9)
	assert.InDelta(t, 1.2909944, s.Std(), 1e-6)
	assert.InDelta(t, 1.75, s.Quantile(0.25), 1e-9)
}

func TestSeriesEmptyStatistics(t *testing.T) {
	s := &Series{Name: "v", Numeric: true}
	assert.True(t, math.IsNaN(s.Mean()))
	assert.True(t, math.IsNaN(s.Min()))
	assert.True(t, math.IsNaN(s.Median()))
	assert.Equal(t, 0.0, s.Sum())
}

func TestSeriesIdx(t *testing.T) {
	s := &Series{
		Name:    "score",
		Numeric: true,
		Index:   []string{"Go", "SQL", "Rust"},
		Floats:  []float64{81.7, 80, 95},
	}
	assert.Equal(t, "Rust", s.IdxMax())
	assert.Equal(t, "SQL", s.IdxMin())
}

func TestSeriesSortAndSlice(t *testing.T) {
	s := &Series{
		Name:    "n",
		Numeric: true,
		Index:   []string{"a", "b", "c", "d"},
		Floats:  []float64{3, 1, 4, 2},
	}

	t.Run("SortKeepsIndexAligned", func(t *testing.T) {
		sorted := s.SortValues(true)
		assert.Equal(t, []float64{1, 2, 3, 4}, sorted.Floats)
		assert.Equal(t, []string{"b", "d", "a", "c"}, sorted.Index)
	})

	t.Run("NLargest", func(t *testing.T) {
		top := s.NLargest(2)
		assert.Equal(t, []float64{4, 3}, top.Floats)
		assert.Equal(t, []string{"c", "a"}, top.Index)
	})

	t.Run("HeadTail", func(t *testing.T) {
		assert.Equal(t, []float64{3, 1}, s.Head(2).Floats)
		assert.Equal(t, []float64{4, 2}, s.Tail(2).Floats)
	})
}

func TestDescribe(t *testing.T) {
	f := studentFrame(t)
	d := f.Describe()
	assert.Contains(t, d.Columns(), "score")
	assert.Equal(t, 6, d.NumRows()) // count, mean, std, min, median, max
}
