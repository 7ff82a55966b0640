// Package classify turns raw analysis results into display-safe text plus
// a type tag. Classification is deterministic: the same value always yields
// the same text and tag.
package classify

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/isdmx/querybox/chart"
	"github.com/isdmx/querybox/dataset"
)

// Type tags attached to classified results.
const (
	TagTable  = "table"
	TagSeries = "series"
	TagScalar = "scalar"
	TagList   = "list"
	TagFigure = "figure"
	TagText   = "text"
	TagOther  = "other"
	TagNone   = "none"
)

// truncateAbove is the row count past which tables and series are shown as
// head plus tail.
const truncateAbove = 20

// edgeRows is how many rows each edge of a truncated rendering keeps.
const edgeRows = 10

// Classify renders a sandbox result for display and names its shape.
func Classify(value any) (text, tag string) {
	switch v := value.(type) {
	case nil:
		return "The analysis ran but produced no output.", TagNone
	case *dataset.Frame:
		return renderFrame(v), TagTable
	case *dataset.Series:
		return renderSeries(v), TagSeries
	case *chart.Figure:
		return v.Describe(), TagFigure
	case bool:
		return strconv.FormatBool(v), TagScalar
	case int:
		return strconv.Itoa(v), TagScalar
	case int64:
		return strconv.FormatInt(v, 10), TagScalar
	case float64:
		return formatScalar(v), TagScalar
	case string:
		return v, TagText
	case []any:
		return renderList(v), TagList
	default:
		return fmt.Sprintf("%v", v), TagOther
	}
}

// formatScalar rounds floats to four decimal places, dropping a trailing
// fractional zero run so whole numbers print bare.
func formatScalar(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(round4(v), 'f', -1, 64)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func renderFrame(f *dataset.Frame) string {
	var b strings.Builder
	n := f.NumRows()
	if n > truncateAbove {
		fmt.Fprintf(&b, "Showing first %d and last %d of %d rows:\n\n", edgeRows, edgeRows, n)
		writeFrameRows(&b, f, f.Head(edgeRows), f.Tail(edgeRows))
	} else {
		writeFrameRows(&b, f, f)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeFrameRows(b *strings.Builder, full *dataset.Frame, parts ...*dataset.Frame) {
	cols := full.Columns()
	b.WriteString(strings.Join(cols, " | "))
	b.WriteByte('\n')
	for i, part := range parts {
		if i > 0 {
			b.WriteString("...\n")
		}
		for r := 0; r < part.NumRows(); r++ {
			cells := make([]string, len(cols))
			for c := range cols {
				cells[c] = part.CellString(r, c)
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteByte('\n')
		}
	}
}

func renderSeries(s *dataset.Series) string {
	var b strings.Builder
	n := s.Len()
	if n > truncateAbove {
		fmt.Fprintf(&b, "Showing first %d and last %d of %d items:\n\n", edgeRows, edgeRows, n)
		writeSeriesRows(&b, s.Head(edgeRows))
		b.WriteString("...\n")
		writeSeriesRows(&b, s.Tail(edgeRows))
	} else {
		writeSeriesRows(&b, s)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeSeriesRows(b *strings.Builder, s *dataset.Series) {
	for i := 0; i < s.Len(); i++ {
		if s.Keyed() {
			fmt.Fprintf(b, "%s: %s\n", s.Label(i), s.ValueString(i))
		} else {
			fmt.Fprintf(b, "%s\n", s.ValueString(i))
		}
	}
}

func renderList(items []any) string {
	out := make([]string, len(items))
	for i, it := range items {
		if f, ok := it.(float64); ok {
			out[i] = formatScalar(f)
		} else {
			out[i] = fmt.Sprintf("%v", it)
		}
	}
	return strings.Join(out, ", ")
}
