//go:build !windows

package daemon

import (
	"fmt"
	"syscall"
)

// IsRunning reports whether the recorded server process is alive.
func (p *PIDFile) IsRunning() (Info, bool) {
	info, err := p.Read()
	if err != nil {
		return Info{}, false
	}
	// Signal 0 tests if the process exists without sending a signal.
	err = syscall.Kill(info.PID, 0)
	return info, err == nil
}

// Signal sends sig to the recorded server process.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	info, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return syscall.Kill(info.PID, sig)
}
