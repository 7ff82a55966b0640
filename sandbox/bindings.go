package sandbox

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/isdmx/querybox/chart"
	"github.com/isdmx/querybox/dataset"
)

// nativeKey is a hidden property every binding object answers with its
// wrapped Go value, letting the executor recover typed results without
// exporting through goja's generic map conversion.
const nativeKey = "__native"

// removedGlobals are deleted from every fresh runtime before user code runs.
// The validator denylists these names too; removal makes them structurally
// unreachable rather than merely forbidden.
var removedGlobals = []string{
	"eval", "Function", "globalThis", "Reflect", "Proxy",
}

// setupRuntime hardens a fresh VM and installs the execution namespace:
// the dataset (bound as data, alias df), the chart host API, and a console
// whose output is discarded.
func setupRuntime(vm *goja.Runtime, frame *dataset.Frame) {
	global := vm.GlobalObject()
	for _, name := range removedGlobals {
		_ = global.Delete(name)
	}
	vm.SetMaxCallStackSize(256)

	frameVal := vm.NewDynamicObject(&frameObject{vm: vm, frame: frame})
	vm.Set("data", frameVal)
	vm.Set("df", frameVal)
	vm.Set("chart", newChartAPI(vm))
	vm.Set("console", newSilentConsole(vm))
}

// throw converts a Go error into a JS exception inside a host call.
func throw(vm *goja.Runtime, err error) goja.Value {
	panic(vm.NewGoError(err))
}

// unwrapValue recovers the native value behind a script result: binding
// objects yield their wrapped frame/series/figure, everything else goes
// through goja's regular export.
func unwrapValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	if obj, ok := val.(*goja.Object); ok {
		if nv := obj.Get(nativeKey); nv != nil && !goja.IsUndefined(nv) {
			switch native := nv.Export().(type) {
			case *frameObject:
				return native.frame
			case *seriesObject:
				return native.series
			case *groupByObject:
				return native.group
			case *groupedColumnObject:
				return native.col
			case *figureObject:
				return native.figure
			}
		}
	}
	return val.Export()
}

// frameObject exposes a dataset.Frame to scripts. Column names resolve via
// property access, so both data.head(5) and data['score'] work. The object
// is read-only: Set and Delete always refuse.
type frameObject struct {
	vm    *goja.Runtime
	frame *dataset.Frame
}

func (f *frameObject) wrapFrame(out *dataset.Frame) goja.Value {
	return f.vm.NewDynamicObject(&frameObject{vm: f.vm, frame: out})
}

func (f *frameObject) wrapSeries(s *dataset.Series) goja.Value {
	return f.vm.NewDynamicObject(&seriesObject{vm: f.vm, series: s})
}

func (f *frameObject) Get(key string) goja.Value {
	vm := f.vm
	switch key {
	case nativeKey:
		return vm.ToValue(f)
	case "shape":
		return vm.ToValue([]int{f.frame.NumRows(), f.frame.NumCols()})
	case "columns":
		return vm.ToValue(f.frame.Columns())
	case "length", "size":
		return vm.ToValue(f.frame.NumRows())
	case "count":
		return vm.ToValue(func() int { return f.frame.NumRows() })
	case "col", "get":
		return vm.ToValue(func(name string) goja.Value {
			s, err := f.frame.Col(name)
			if err != nil {
				throw(vm, err)
			}
			return f.wrapSeries(s)
		})
	case "select":
		return vm.ToValue(func(names ...string) goja.Value {
			out, err := f.frame.Select(names...)
			if err != nil {
				throw(vm, err)
			}
			return f.wrapFrame(out)
		})
	case "head":
		return vm.ToValue(func(n int) goja.Value { return f.wrapFrame(f.frame.Head(orDefault(n, 5))) })
	case "tail":
		return vm.ToValue(func(n int) goja.Value { return f.wrapFrame(f.frame.Tail(orDefault(n, 5))) })
	case "sort_values":
		return vm.ToValue(func(name string, ascending goja.Value) goja.Value {
			asc := true
			if ascending != nil && !goja.IsUndefined(ascending) {
				asc = ascending.ToBoolean()
			}
			out, err := f.frame.SortValues(name, asc)
			if err != nil {
				throw(vm, err)
			}
			return f.wrapFrame(out)
		})
	case "filter", "query":
		return vm.ToValue(func(name, op string, value goja.Value) goja.Value {
			out, err := f.frame.Filter(name, op, value.Export())
			if err != nil {
				throw(vm, err)
			}
			return f.wrapFrame(out)
		})
	case "nlargest":
		return vm.ToValue(func(n int, name string) goja.Value {
			out, err := f.frame.NLargest(n, name)
			if err != nil {
				throw(vm, err)
			}
			return f.wrapFrame(out)
		})
	case "nsmallest":
		return vm.ToValue(func(n int, name string) goja.Value {
			out, err := f.frame.NSmallest(n, name)
			if err != nil {
				throw(vm, err)
			}
			return f.wrapFrame(out)
		})
	case "groupby":
		return vm.ToValue(func(name string) goja.Value {
			g, err := f.frame.GroupBy(name)
			if err != nil {
				throw(vm, err)
			}
			return vm.NewDynamicObject(&groupByObject{vm: vm, group: g})
		})
	case "unique":
		return vm.ToValue(func(name string) goja.Value {
			out, err := f.frame.Unique(name)
			if err != nil {
				throw(vm, err)
			}
			return vm.ToValue(out)
		})
	case "nunique":
		return vm.ToValue(func(name string) goja.Value {
			out, err := f.frame.Unique(name)
			if err != nil {
				throw(vm, err)
			}
			return vm.ToValue(len(out))
		})
	case "value_counts":
		return vm.ToValue(func(name string) goja.Value {
			s, err := f.frame.ValueCounts(name)
			if err != nil {
				throw(vm, err)
			}
			return f.wrapSeries(s)
		})
	case "describe":
		return vm.ToValue(func() goja.Value { return f.wrapFrame(f.frame.Describe()) })
	case "corr":
		return vm.ToValue(func(a, b string) goja.Value {
			r, err := f.frame.Corr(a, b)
			if err != nil {
				throw(vm, err)
			}
			return vm.ToValue(r)
		})
	case "copy":
		return vm.ToValue(func() goja.Value { return f.wrapFrame(f.frame) })
	}
	if f.frame.HasColumn(key) {
		s, err := f.frame.Col(key)
		if err != nil {
			throw(vm, err)
		}
		return f.wrapSeries(s)
	}
	return goja.Undefined()
}

func (f *frameObject) Set(key string, val goja.Value) bool { return false }
func (f *frameObject) Has(key string) bool                 { return f.frame.HasColumn(key) }
func (f *frameObject) Delete(key string) bool              { return false }
func (f *frameObject) Keys() []string                      { return f.frame.Columns() }

// seriesObject exposes a dataset.Series to scripts.
type seriesObject struct {
	vm     *goja.Runtime
	series *dataset.Series
}

func (s *seriesObject) wrap(out *dataset.Series) goja.Value {
	return s.vm.NewDynamicObject(&seriesObject{vm: s.vm, series: out})
}

func (s *seriesObject) Get(key string) goja.Value {
	vm := s.vm
	switch key {
	case nativeKey:
		return vm.ToValue(s)
	case "length", "size":
		return vm.ToValue(s.series.Len())
	case "name":
		return vm.ToValue(s.series.Name)
	case "index":
		return vm.ToValue(s.series.Index)
	case "values":
		return vm.ToValue(s.series.ToList())
	case "mean":
		return vm.ToValue(func() float64 { return s.series.Mean() })
	case "sum":
		return vm.ToValue(func() float64 { return s.series.Sum() })
	case "count":
		return vm.ToValue(func() int { return s.series.Count() })
	case "min":
		return vm.ToValue(func() float64 { return s.series.Min() })
	case "max":
		return vm.ToValue(func() float64 { return s.series.Max() })
	case "std":
		return vm.ToValue(func() float64 { return s.series.Std() })
	case "variance":
		return vm.ToValue(func() float64 { return s.series.Variance() })
	case "median":
		return vm.ToValue(func() float64 { return s.series.Median() })
	case "quantile":
		return vm.ToValue(func(q float64) float64 { return s.series.Quantile(q) })
	case "head":
		return vm.ToValue(func(n int) goja.Value { return s.wrap(s.series.Head(orDefault(n, 5))) })
	case "tail":
		return vm.ToValue(func(n int) goja.Value { return s.wrap(s.series.Tail(orDefault(n, 5))) })
	case "sort_values":
		return vm.ToValue(func(ascending goja.Value) goja.Value {
			asc := true
			if ascending != nil && !goja.IsUndefined(ascending) {
				asc = ascending.ToBoolean()
			}
			return s.wrap(s.series.SortValues(asc))
		})
	case "nlargest":
		return vm.ToValue(func(n int) goja.Value { return s.wrap(s.series.NLargest(orDefault(n, 5))) })
	case "nsmallest":
		return vm.ToValue(func(n int) goja.Value { return s.wrap(s.series.NSmallest(orDefault(n, 5))) })
	case "round":
		return vm.ToValue(func(d int) goja.Value { return s.wrap(s.series.Round(d)) })
	case "idxmax":
		return vm.ToValue(func() string { return s.series.IdxMax() })
	case "idxmin":
		return vm.ToValue(func() string { return s.series.IdxMin() })
	case "unique":
		return vm.ToValue(func() []string { return s.series.Unique() })
	case "nunique":
		return vm.ToValue(func() int { return len(s.series.Unique()) })
	case "tolist", "to_list":
		return vm.ToValue(func() []any { return s.series.ToList() })
	}
	return goja.Undefined()
}

func (s *seriesObject) Set(key string, val goja.Value) bool { return false }
func (s *seriesObject) Has(key string) bool                 { return false }
func (s *seriesObject) Delete(key string) bool              { return false }
func (s *seriesObject) Keys() []string                      { return nil }

// groupByObject exposes a dataset.GroupBy. Column names resolve to grouped
// columns, so data.groupby('course')['score'] selects a column.
type groupByObject struct {
	vm    *goja.Runtime
	group *dataset.GroupBy
}

func (g *groupByObject) Get(key string) goja.Value {
	vm := g.vm
	switch key {
	case nativeKey:
		return vm.ToValue(g)
	case "keys":
		return vm.ToValue(g.group.Keys())
	case "size", "count":
		return vm.ToValue(func() goja.Value {
			return vm.NewDynamicObject(&seriesObject{vm: vm, series: g.group.Size()})
		})
	case "col", "get":
		return vm.ToValue(func(name string) goja.Value { return g.column(name) })
	}
	return g.column(key)
}

func (g *groupByObject) column(name string) goja.Value {
	gc, err := g.group.Col(name)
	if err != nil {
		throw(g.vm, fmt.Errorf("group by %q: %w", g.group.KeyColumn(), err))
	}
	return g.vm.NewDynamicObject(&groupedColumnObject{vm: g.vm, col: gc})
}

func (g *groupByObject) Set(key string, val goja.Value) bool { return false }
func (g *groupByObject) Has(key string) bool                 { return false }
func (g *groupByObject) Delete(key string) bool              { return false }
func (g *groupByObject) Keys() []string                      { return nil }

// groupedColumnObject exposes per-group aggregations of one column.
type groupedColumnObject struct {
	vm  *goja.Runtime
	col *dataset.GroupedColumn
}

func (g *groupedColumnObject) Get(key string) goja.Value {
	vm := g.vm
	wrap := func(s *dataset.Series) goja.Value {
		return vm.NewDynamicObject(&seriesObject{vm: vm, series: s})
	}
	switch key {
	case nativeKey:
		return vm.ToValue(g)
	case "mean", "sum", "count", "min", "max", "std", "median":
		op := key
		return vm.ToValue(func() goja.Value {
			s, err := g.col.Agg(op)
			if err != nil {
				throw(vm, err)
			}
			return wrap(s)
		})
	case "agg", "aggregate":
		return vm.ToValue(func(op string) goja.Value {
			s, err := g.col.Agg(op)
			if err != nil {
				throw(vm, err)
			}
			return wrap(s)
		})
	}
	return goja.Undefined()
}

func (g *groupedColumnObject) Set(key string, val goja.Value) bool { return false }
func (g *groupedColumnObject) Has(key string) bool                 { return false }
func (g *groupedColumnObject) Delete(key string) bool              { return false }
func (g *groupedColumnObject) Keys() []string                      { return nil }

// figureObject exposes a chart.Figure under construction.
type figureObject struct {
	vm     *goja.Runtime
	figure *chart.Figure
}

func (f *figureObject) Get(key string) goja.Value {
	vm := f.vm
	self := vm.NewDynamicObject(f)
	switch key {
	case nativeKey:
		return vm.ToValue(f)
	case "kind":
		return vm.ToValue(f.figure.Kind)
	case "title":
		return vm.ToValue(func(title string) goja.Value {
			f.figure.SetTitle(title)
			return self
		})
	case "add_trace":
		return vm.ToValue(func(name string, data goja.Value) goja.Value {
			f.figure.AddTrace(name, valueLength(data))
			return self
		})
	case "update_layout":
		return vm.ToValue(func(opts map[string]any) goja.Value {
			if title, ok := opts["title"].(string); ok {
				f.figure.SetTitle(title)
			}
			return self
		})
	}
	return goja.Undefined()
}

func (f *figureObject) Set(key string, val goja.Value) bool { return false }
func (f *figureObject) Has(key string) bool                 { return false }
func (f *figureObject) Delete(key string) bool              { return false }
func (f *figureObject) Keys() []string                      { return nil }

// newChartAPI builds the chart host object: one constructor per chart kind,
// each taking the data (series, frame or array) and an optional title.
func newChartAPI(vm *goja.Runtime) *goja.Object {
	api := vm.NewObject()
	for _, kind := range []string{"bar", "line", "scatter", "pie", "histogram", "box"} {
		k := kind
		_ = api.Set(k, func(data goja.Value, title goja.Value) goja.Value {
			fig := chart.New(k, optionalString(title))
			addFigureData(fig, data)
			return vm.NewDynamicObject(&figureObject{vm: vm, figure: fig})
		})
	}
	return api
}

// addFigureData records a trace description for the given data value. Only
// shape information is kept; figures never carry raw rows.
func addFigureData(fig *chart.Figure, data goja.Value) {
	switch native := unwrapValue(data).(type) {
	case *dataset.Series:
		fig.AddTrace(native.Name, native.Len())
	case *dataset.Frame:
		for _, name := range native.Columns() {
			if s, err := native.Col(name); err == nil && s.Numeric {
				fig.AddTrace(name, s.Len())
			}
		}
	case []any:
		fig.AddTrace("", len(native))
	case nil:
	default:
		fig.AddTrace(fmt.Sprintf("%v", native), 1)
	}
}

// newSilentConsole returns a console object whose output goes nowhere.
// Printed output is not part of an execution result.
func newSilentConsole(vm *goja.Runtime) *goja.Object {
	console := vm.NewObject()
	discard := func(args ...goja.Value) {}
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(name, discard)
	}
	return console
}

func valueLength(v goja.Value) int {
	switch native := unwrapValue(v).(type) {
	case *dataset.Series:
		return native.Len()
	case *dataset.Frame:
		return native.NumRows()
	case []any:
		return len(native)
	default:
		return 1
	}
}

func optionalString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
