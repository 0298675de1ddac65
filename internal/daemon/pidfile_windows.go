//go:build windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
)

// IsRunning reports whether the recorded server process is alive.
func (p *PIDFile) IsRunning() (Info, bool) {
	info, err := p.Read()
	if err != nil {
		return Info{}, false
	}
	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return info, false
	}
	// FindProcess always succeeds on Windows.
	err = proc.Signal(syscall.Signal(0))
	return info, err == nil
}

// Signal sends sig to the recorded server process. Only os.Kill is reliable on Windows.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	info, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return fmt.Errorf("find process %d: %w", info.PID, err)
	}
	return proc.Signal(sig)
}
