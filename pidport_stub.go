//go:build !linux

package svcrun

// portFromPID returns 0 on platforms without procfs TCP tables. Callers
// fall back to the configured port.
func portFromPID(_ int) int {
	return 0
}
