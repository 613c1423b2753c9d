//go:build !windows

package discovery

import (
	"os"
	"syscall"
)

// processAlive probes a pid with signal 0, which checks existence
// without delivering anything.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
