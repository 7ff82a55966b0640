// Package sandbox executes validated analysis code under resource limits.
//
// Two backends implement the Executor interface. The vm backend runs code
// on an embedded interpreter inside the server process, with an
// interrupt-based deadline and a memory watchdog. The process backend runs
// the same interpreter inside a short-lived worker process under an
// OS-enforced address-space limit, making the kernel the authoritative
// isolation boundary.
//
// Usage:
//
//	executor, err := sandbox.NewExecutor(logger, limits, "process", "")
//	result := executor.Execute(ctx, code, frame)
//	if !result.Success {
//	    return result.Err
//	}
package sandbox
