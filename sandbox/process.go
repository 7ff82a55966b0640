package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/querybox/apperror"
	"github.com/isdmx/querybox/dataset"
)

// killGrace is how much longer than the script deadline the worker process
// may live before the parent kills it. The worker enforces the deadline
// itself; the grace covers startup and result serialization.
const killGrace = 5 * time.Second

// ProcessExecutor runs each script in a short-lived worker process. The
// worker applies an address-space rlimit before executing, so memory abuse
// is stopped by the kernel rather than by cooperative sampling, and a
// runaway interpreter can always be killed from outside.
type ProcessExecutor struct {
	workerPath string
	limits     Limits
	logger     *zap.Logger
}

// NewProcessExecutor returns a process-isolated executor. workerPath names
// the worker binary; when empty, a binary called querybox-worker next to
// the running executable (or on PATH) is used.
func NewProcessExecutor(workerPath string, limits Limits, logger *zap.Logger) (*ProcessExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path, err := resolveWorkerPath(workerPath)
	if err != nil {
		return nil, err
	}
	return &ProcessExecutor{workerPath: path, limits: limits, logger: logger}, nil
}

func resolveWorkerPath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "querybox-worker")
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	return exec.LookPath("querybox-worker")
}

// Execute ships the code and frame to a fresh worker process and decodes
// its reply.
func (e *ProcessExecutor) Execute(ctx context.Context, code string, frame *dataset.Frame) Result {
	start := time.Now()

	job, err := json.Marshal(workerJob{
		Code:        code,
		Frame:       frame,
		TimeoutSec:  e.limits.TimeoutSec,
		MaxMemoryMB: e.limits.MaxMemoryMB,
	})
	if err != nil {
		return e.failure(apperror.Unexpected(err), start)
	}

	deadline := time.Duration(e.limits.TimeoutSec)*time.Second + killGrace
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.workerPath)
	cmd.Stdin = bytes.NewReader(job)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		return e.failure(e.classifyProcessFailure(runCtx, runErr, stderr.String()), start)
	}

	var reply workerResult
	if err := json.Unmarshal(stdout.Bytes(), &reply); err != nil {
		e.logger.Error("worker produced unreadable output", zap.Error(err))
		return e.failure(apperror.Unexpected(err), start)
	}

	res := Result{
		Success:         reply.Success,
		ExecutionTimeMs: reply.ExecutionTimeMs,
	}
	if reply.Success {
		res.Value = decodeValue(reply.Value)
	} else if reply.Error != nil {
		res.Err = reply.Error.toAppError()
	} else {
		res.Err = apperror.ExecutionFailed("worker reported failure without detail")
	}
	return res
}

// classifyProcessFailure maps a dead worker onto the error taxonomy. A
// kernel OOM kill or a failed allocation under the rlimit shows up as an
// abnormal exit, not as a structured reply.
func (e *ProcessExecutor) classifyProcessFailure(ctx context.Context, runErr error, stderr string) *apperror.AppError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperror.Timeout(e.limits.TimeoutSec)
	}
	if looksOutOfMemory(stderr) {
		return apperror.MemoryLimit(e.limits.MaxMemoryMB)
	}
	var exit *exec.ExitError
	if errors.As(runErr, &exit) && exit.ExitCode() == -1 {
		// Killed by signal; under an address-space rlimit the usual
		// culprit is the OOM killer.
		return apperror.MemoryLimit(e.limits.MaxMemoryMB)
	}
	e.logger.Error("worker process failed",
		zap.Error(runErr),
		zap.String("stderr", firstLine(stderr)))
	return apperror.ExecutionFailed("analysis worker exited abnormally")
}

func looksOutOfMemory(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "out of memory") ||
		strings.Contains(s, "cannot allocate memory") ||
		strings.Contains(s, "runtime: out of memory")
}

func (e *ProcessExecutor) failure(appErr *apperror.AppError, start time.Time) Result {
	return Result{
		Err:             appErr,
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}
