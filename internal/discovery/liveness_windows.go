//go:build windows

package discovery

import "os"

// processAlive reports whether a process with the pid can be opened.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}
