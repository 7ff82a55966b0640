//go:build !linux

package sandbox

// applyMemoryLimit is a no-op where RLIMIT_AS is unavailable or
// unreliable; the in-process memory watchdog still applies.
func applyMemoryLimit(maxMemoryMB int) error {
	return nil
}
