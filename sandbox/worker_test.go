package sandbox

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/querybox/apperror"
	"github.com/isdmx/querybox/chart"
	"github.com/isdmx/querybox/dataset"
)

func TestRunWorker(t *testing.T) {
	frame := testFrame(t)

	runJob := func(t *testing.T, code string) workerResult {
		t.Helper()
		job, err := json.Marshal(workerJob{
			Code:       code,
			Frame:      frame,
			TimeoutSec: 2,
			// memory limit deliberately unset: rlimits cannot be raised
			// back within a process, so the test run stays unrestricted
		})
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, RunWorker(bytes.NewReader(job), &out))

		var reply workerResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &reply))
		return reply
	}

	t.Run("ScalarResult", func(t *testing.T) {
		reply := runJob(t, `data['score'].mean()`)
		require.True(t, reply.Success)
		require.NotNil(t, reply.Value)
		assert.Equal(t, "scalar", reply.Value.Kind)
		assert.InDelta(t, 75.0, decodeValue(reply.Value), 1e-9)
	})

	t.Run("SeriesResult", func(t *testing.T) {
		reply := runJob(t, `data.groupby('course_name')['score'].mean()`)
		require.True(t, reply.Success)
		assert.Equal(t, "series", reply.Value.Kind)
		s := decodeValue(reply.Value).(*dataset.Series)
		assert.Equal(t, []string{"Go", "SQL"}, s.Index)
	})

	t.Run("ExecutionError", func(t *testing.T) {
		reply := runJob(t, `throw new Error("boom")`)
		require.False(t, reply.Success)
		require.NotNil(t, reply.Error)
		assert.Equal(t, int(apperror.CodeExecutionFailed), reply.Error.Code)
	})

	t.Run("MalformedJob", func(t *testing.T) {
		var out bytes.Buffer
		err := RunWorker(strings.NewReader("not json"), &out)
		assert.Error(t, err)
	})
}

func TestWireValueRoundTrip(t *testing.T) {
	frame := testFrame(t)

	cases := []struct {
		name string
		in   any
	}{
		{"Frame", frame},
		{"Figure", chart.New("bar", "t").AddTrace("score", 4)},
		{"Float", 1.5},
		{"Int", int64(7)},
		{"Bool", true},
		{"Text", "hello"},
		{"None", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(encodeValue(tc.in))
			require.NoError(t, err)
			var back wireValue
			require.NoError(t, json.Unmarshal(raw, &back))
			out := decodeValue(&back)

			switch want := tc.in.(type) {
			case *dataset.Frame:
				got := out.(*dataset.Frame)
				assert.Equal(t, want.Columns(), got.Columns())
				assert.Equal(t, want.NumRows(), got.NumRows())
			case *chart.Figure:
				got := out.(*chart.Figure)
				assert.Equal(t, want.Describe(), got.Describe())
			default:
				assert.Equal(t, tc.in, out)
			}
		})
	}

	t.Run("NaNScalarSurvives", func(t *testing.T) {
		raw, err := json.Marshal(encodeValue(math.NaN()))
		require.NoError(t, err)
		var back wireValue
		require.NoError(t, json.Unmarshal(raw, &back))
		f, ok := decodeValue(&back).(float64)
		require.True(t, ok)
		assert.True(t, math.IsNaN(f))
	})

	t.Run("ListBecomesStrings", func(t *testing.T) {
		raw, err := json.Marshal(encodeValue([]any{"a", int64(1)}))
		require.NoError(t, err)
		var back wireValue
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, []any{"a", "1"}, decodeValue(&back))
	})
}

func TestNewExecutorFactory(t *testing.T) {
	limits := Limits{TimeoutSec: 1, MaxMemoryMB: 64}

	t.Run("VMBackend", func(t *testing.T) {
		exec, err := NewExecutor(nil, limits, "vm", "")
		require.NoError(t, err)
		assert.IsType(t, &VMExecutor{}, exec)
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		_, err := NewExecutor(nil, limits, "docker", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported backend")
	})
}
