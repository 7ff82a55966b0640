// Package chart holds the figure values built by sandboxed analysis code.
//
// A Figure is a plain description of a chart: its kind, title and named
// traces. Figures are never rendered inside the pipeline; the classifier
// reduces them to a short text description and the caller decides how (or
// whether) to draw them.
package chart

import (
	"fmt"
	"strings"
)

// Trace is one data series inside a figure.
type Trace struct {
	Name   string
	Points int
}

// Figure describes a chart produced by analysis code.
type Figure struct {
	Kind   string // bar, line, scatter, pie, histogram
	Title  string
	Traces []Trace
}

// New creates an empty figure of the given kind.
func New(kind, title string) *Figure {
	return &Figure{Kind: kind, Title: title}
}

// AddTrace appends a named data series.
func (f *Figure) AddTrace(name string, points int) *Figure {
	if name == "" {
		name = fmt.Sprintf("trace %d", len(f.Traces))
	}
	f.Traces = append(f.Traces, Trace{Name: name, Points: points})
	return f
}

// SetTitle replaces the figure title.
func (f *Figure) SetTitle(title string) *Figure {
	f.Title = title
	return f
}

// Describe returns the short display form: title, kind and series count.
// Raw trace data never appears here.
func (f *Figure) Describe() string {
	title := f.Title
	if title == "" {
		title = "untitled"
	}
	n := len(f.Traces)
	noun := "series"
	desc := fmt.Sprintf("%s chart %q (%d data %s)", f.Kind, title, n, noun)
	if n > 0 {
		names := make([]string, n)
		for i, t := range f.Traces {
			names[i] = t.Name
		}
		desc += ": " + strings.Join(names, ", ")
	}
	return desc
}
