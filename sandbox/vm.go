package sandbox

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/isdmx/querybox/apperror"
	"github.com/isdmx/querybox/dataset"
)

// Interrupt sentinels. The watchdog goroutine passes one of these to
// vm.Interrupt so the failure can be told apart after the fact.
const (
	interruptTimeout = "timeout"
	interruptMemory  = "memory"
)

// memoryPollInterval is how often the watchdog samples heap usage.
const memoryPollInterval = 50 * time.Millisecond

// VMExecutor runs scripts on an embedded interpreter inside the server
// process. Every call gets a fresh hardened runtime; nothing survives
// between executions. Enforcement is cooperative: the deadline interrupts
// the interpreter and a watchdog samples process heap usage against the
// memory limit. The process backend gives the hard OS guarantee.
type VMExecutor struct {
	limits Limits
	logger *zap.Logger
}

// NewVMExecutor returns an in-process executor with the given limits.
func NewVMExecutor(limits Limits, logger *zap.Logger) *VMExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VMExecutor{limits: limits, logger: logger}
}

// Execute runs validated code against the frame and returns a classified
// result. The script's completion value is the answer; when it is
// undefined, the result, output and fig globals are consulted in order.
func (e *VMExecutor) Execute(ctx context.Context, code string, frame *dataset.Frame) Result {
	start := time.Now()

	vm := goja.New()
	setupRuntime(vm, frame)

	timeout := time.Duration(e.limits.TimeoutSec) * time.Second
	deadline := time.AfterFunc(timeout, func() {
		vm.Interrupt(interruptTimeout)
	})
	defer deadline.Stop()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go e.watchMemory(watchCtx, vm)

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(interruptTimeout)
	})
	defer stop()

	value, runErr := vm.RunScript("analysis.js", code)
	elapsed := time.Since(start)

	res := Result{ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000.0}
	if runErr != nil {
		res.Err = e.wrapRunError(runErr)
		e.logger.Debug("execution failed",
			zap.Int("code", int(res.Err.Code)),
			zap.Duration("elapsed", elapsed))
		return res
	}

	res.Success = true
	res.Value = e.resolveValue(vm, value)
	e.logger.Debug("execution finished", zap.Duration("elapsed", elapsed))
	return res
}

// resolveValue picks the script's answer: the completion value when it is
// something, otherwise the first set of the result, output or fig globals.
func (e *VMExecutor) resolveValue(vm *goja.Runtime, completion goja.Value) any {
	if v := unwrapValue(completion); v != nil {
		return v
	}
	for _, name := range []string{"result", "output", "fig"} {
		if gv := vm.GlobalObject().Get(name); gv != nil {
			if v := unwrapValue(gv); v != nil {
				return v
			}
		}
	}
	return nil
}

// watchMemory interrupts the runtime when the process heap crosses the
// configured ceiling. Heap usage is process-wide, so a concurrent heavy
// query can trip a lighter one; the limit is treated as a backstop, not
// an accounting boundary.
func (e *VMExecutor) watchMemory(ctx context.Context, vm *goja.Runtime) {
	if e.limits.MaxMemoryMB <= 0 {
		return
	}
	limit := uint64(e.limits.MaxMemoryMB) * 1024 * 1024
	ticker := time.NewTicker(memoryPollInterval)
	defer ticker.Stop()

	var stats runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runtime.ReadMemStats(&stats)
			if stats.HeapAlloc > limit {
				e.logger.Warn("memory ceiling crossed",
					zap.Uint64("heap_bytes", stats.HeapAlloc),
					zap.Int("limit_mb", e.limits.MaxMemoryMB))
				vm.Interrupt(interruptMemory)
				return
			}
		}
	}
}

// wrapRunError maps an interpreter failure onto the error taxonomy.
func (e *VMExecutor) wrapRunError(err error) *apperror.AppError {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		switch interrupted.Value() {
		case interruptMemory:
			return apperror.MemoryLimit(e.limits.MaxMemoryMB)
		default:
			return apperror.Timeout(e.limits.TimeoutSec)
		}
	}

	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return apperror.Syntax(firstLine(syntax.Error()))
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		return apperror.ExecutionFailed(exceptionMessage(exc))
	}
	return apperror.ExecutionFailed(firstLine(err.Error()))
}

// exceptionMessage extracts a one-line message from a script exception,
// without the JS stack trace and without the GoError wrapper prefix.
func exceptionMessage(exc *goja.Exception) string {
	msg := firstLine(exc.Error())
	msg = strings.TrimPrefix(msg, "GoError: ")
	return msg
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
