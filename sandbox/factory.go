package sandbox

import (
	"fmt"

	"go.uber.org/zap"
)

// NewExecutor creates the sandbox executor selected by backend.
func NewExecutor(logger *zap.Logger, limits Limits, backend, workerPath string) (Executor, error) {
	switch backend {
	case "vm":
		return NewVMExecutor(limits, logger), nil
	case "process":
		return NewProcessExecutor(workerPath, limits, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}
