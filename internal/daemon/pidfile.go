// Package daemon tracks a background zenclock server through a small state
// file holding its PID and listen address.
package daemon

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Info describes a running server.
type Info struct {
	PID  int
	Addr string
}

// BaseURL returns the http URL clients use to reach the server. An address
// without a host is reached through localhost.
func (i Info) BaseURL() string {
	host, port, err := net.SplitHostPort(i.Addr)
	if err != nil {
		return "http://" + i.Addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// PIDFile manages the state file of a background server.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process as serving on addr.
func (p *PIDFile) Write(addr string) error {
	return p.WriteInfo(Info{PID: os.Getpid(), Addr: addr})
}

// WriteInfo records info as two lines: PID, then address.
func (p *PIDFile) WriteInfo(info Info) error {
	data := strconv.Itoa(info.PID) + "\n" + info.Addr + "\n"
	return os.WriteFile(p.Path, []byte(data), 0o644)
}

// Read parses the state file. A file holding only a PID yields an empty Addr.
func (p *PIDFile) Read() (Info, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Info{}, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Info{}, fmt.Errorf("invalid PID file content: %w", err)
	}
	info := Info{PID: pid}
	if len(lines) > 1 {
		info.Addr = strings.TrimSpace(lines[1])
	}
	return info, nil
}

// Remove deletes the PID file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}
