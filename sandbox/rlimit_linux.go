//go:build linux

package sandbox

import "syscall"

// applyMemoryLimit caps the worker's address space so oversized
// allocations fail inside the sandboxed process instead of growing the
// host. A zero or negative limit leaves the process unrestricted.
func applyMemoryLimit(maxMemoryMB int) error {
	if maxMemoryMB <= 0 {
		return nil
	}
	limit := uint64(maxMemoryMB) * 1024 * 1024
	return syscall.Setrlimit(syscall.RLIMIT_AS, &syscall.Rlimit{
		Cur: limit,
		Max: limit,
	})
}
