package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	t.Run("WithTraces", func(t *testing.T) {
		fig := New("bar", "Average score by course")
		fig.AddTrace("score", 5)
		assert.Equal(t, `bar chart "Average score by course" (1 data series): score`, fig.Describe())
	})

	t.Run("Untitled", func(t *testing.T) {
		fig := New("line", "")
		assert.Equal(t, `line chart "untitled" (0 data series)`, fig.Describe())
	})

	t.Run("UnnamedTraceGetsPlaceholder", func(t *testing.T) {
		fig := New("pie", "Shares")
		fig.AddTrace("", 3)
		assert.Contains(t, fig.Describe(), "trace 0")
	})

	t.Run("SetTitle", func(t *testing.T) {
		fig := New("scatter", "old")
		fig.SetTitle("new")
		assert.Contains(t, fig.Describe(), `"new"`)
	})
}
