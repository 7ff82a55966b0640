package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/isdmx/querybox/apperror"
	"github.com/isdmx/querybox/chart"
	"github.com/isdmx/querybox/dataset"
)

// Wire protocol between the server and the worker binary: one JSON job on
// stdin, one JSON result on stdout, then the worker exits. The worker sets
// its own address-space rlimit before touching the job, so the memory cap
// holds even if the script defeats every in-process check.

// workerJob is the request the parent writes to the worker's stdin.
type workerJob struct {
	Code        string         `json:"code"`
	Frame       *dataset.Frame `json:"frame"`
	TimeoutSec  int            `json:"timeout_sec"`
	MaxMemoryMB int            `json:"max_memory_mb"`
}

// workerError carries a classified failure across the process boundary.
type workerError struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	UserMessage string `json:"user_message"`
}

// workerResult is the reply the worker writes to stdout.
type workerResult struct {
	Success         bool         `json:"success"`
	Value           *wireValue   `json:"value,omitempty"`
	Error           *workerError `json:"error,omitempty"`
	ExecutionTimeMs float64      `json:"execution_time_ms"`
}

// wireValue is a tagged encoding of an execution result. Scalars travel as
// strings so NaN and the infinities survive JSON.
type wireValue struct {
	Kind   string          `json:"kind"`
	Frame  *dataset.Frame  `json:"frame,omitempty"`
	Series *dataset.Series `json:"series,omitempty"`
	Figure *chart.Figure   `json:"figure,omitempty"`
	Scalar string          `json:"scalar,omitempty"`
	Text   string          `json:"text,omitempty"`
	Bool   bool            `json:"bool,omitempty"`
	List   []string        `json:"list,omitempty"`
}

func encodeValue(v any) *wireValue {
	switch native := v.(type) {
	case nil:
		return &wireValue{Kind: "none"}
	case *dataset.Frame:
		return &wireValue{Kind: "frame", Frame: native}
	case *dataset.Series:
		return &wireValue{Kind: "series", Series: native}
	case *chart.Figure:
		return &wireValue{Kind: "figure", Figure: native}
	case bool:
		return &wireValue{Kind: "bool", Bool: native}
	case int64:
		return &wireValue{Kind: "scalar", Scalar: strconv.FormatInt(native, 10)}
	case float64:
		return &wireValue{Kind: "scalar", Scalar: strconv.FormatFloat(native, 'g', -1, 64)}
	case string:
		return &wireValue{Kind: "text", Text: native}
	case []any:
		items := make([]string, len(native))
		for i, it := range native {
			items[i] = fmt.Sprintf("%v", it)
		}
		return &wireValue{Kind: "list", List: items}
	default:
		return &wireValue{Kind: "text", Text: fmt.Sprintf("%v", native)}
	}
}

func decodeValue(w *wireValue) any {
	if w == nil {
		return nil
	}
	switch w.Kind {
	case "frame":
		return w.Frame
	case "series":
		return w.Series
	case "figure":
		return w.Figure
	case "bool":
		return w.Bool
	case "scalar":
		if n, err := strconv.ParseInt(w.Scalar, 10, 64); err == nil {
			return n
		}
		f, err := strconv.ParseFloat(w.Scalar, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case "text":
		return w.Text
	case "list":
		items := make([]any, len(w.List))
		for i, s := range w.List {
			items[i] = s
		}
		return items
	default:
		return nil
	}
}

// RunWorker services exactly one job read from in and writes the result to
// out. It is the whole body of the worker binary.
func RunWorker(in io.Reader, out io.Writer) error {
	var job workerJob
	if err := json.NewDecoder(in).Decode(&job); err != nil {
		return fmt.Errorf("decoding job: %w", err)
	}
	if err := applyMemoryLimit(job.MaxMemoryMB); err != nil {
		return fmt.Errorf("applying memory limit: %w", err)
	}

	exec := NewVMExecutor(Limits{
		TimeoutSec:  job.TimeoutSec,
		MaxMemoryMB: job.MaxMemoryMB,
	}, zap.NewNop())
	res := exec.Execute(context.Background(), job.Code, job.Frame)

	reply := workerResult{
		Success:         res.Success,
		ExecutionTimeMs: res.ExecutionTimeMs,
	}
	if res.Success {
		reply.Value = encodeValue(res.Value)
	} else {
		reply.Error = &workerError{
			Code:        int(res.Err.Code),
			Message:     res.Err.Message,
			UserMessage: res.Err.UserMessage,
		}
	}
	if err := json.NewEncoder(out).Encode(reply); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

func (w *workerError) toAppError() *apperror.AppError {
	code := apperror.Code(w.Code)
	err := apperror.ErrExecution
	switch {
	case code >= 200 && code < 300:
		err = apperror.ErrValidation
	case code >= 400 && code < 500:
		err = apperror.ErrSecurity
	case code >= 500 && code < 600:
		err = apperror.ErrData
	}
	return &apperror.AppError{
		Err:         err,
		Code:        code,
		Message:     w.Message,
		UserMessage: w.UserMessage,
	}
}
