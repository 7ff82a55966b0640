package sandbox

import (
	"context"

	"github.com/isdmx/querybox/apperror"
	"github.com/isdmx/querybox/dataset"
)

// Result is the outcome of one sandboxed execution. Value is set iff
// Success is true; Err carries the taxonomy error otherwise. "Ran without
// producing output" is success with a nil Value.
type Result struct {
	Success         bool
	Value           any
	Err             *apperror.AppError
	ExecutionTimeMs float64
}

// Executor runs sanitized code against a read-only dataset view. The code
// must already have passed validation; the executor's own isolation is the
// second line of defense, not the first.
type Executor interface {
	Execute(ctx context.Context, code string, frame *dataset.Frame) Result
}

// Limits are the per-execution resource bounds, taken from policy.
type Limits struct {
	TimeoutSec  int
	MaxMemoryMB int
}
