package daemon

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_WriteAndRead(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "zenclock.pid"))

	require.NoError(t, pf.WriteInfo(Info{PID: 12345, Addr: ":7420"}))

	info, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, Info{PID: 12345, Addr: ":7420"}, info)
}

func TestPIDFile_Write_CurrentPID(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "zenclock.pid"))

	require.NoError(t, pf.Write("127.0.0.1:9000"))

	info, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, "127.0.0.1:9000", info.Addr)
}

func TestPIDFile_Read_PIDOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zenclock.pid")
	require.NoError(t, os.WriteFile(path, []byte("42\n"), 0o644))

	info, err := NewPIDFile(path).Read()
	require.NoError(t, err)
	assert.Equal(t, 42, info.PID)
	assert.Empty(t, info.Addr)
}

func TestPIDFile_Read_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewPIDFile(filepath.Join(dir, "missing.pid")).Read()
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.pid")
	require.NoError(t, os.WriteFile(bad, []byte("not-a-number\n"), 0o644))
	_, err = NewPIDFile(bad).Read()
	assert.ErrorContains(t, err, "invalid PID file content")
}

func TestPIDFile_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zenclock.pid")
	pf := NewPIDFile(path)
	require.NoError(t, pf.WriteInfo(Info{PID: 1}))

	require.NoError(t, pf.Remove())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, pf.Remove(), "removing twice fails")
}

func TestPIDFile_IsRunning(t *testing.T) {
	dir := t.TempDir()

	alive := NewPIDFile(filepath.Join(dir, "alive.pid"))
	require.NoError(t, alive.Write(":7420"))
	info, running := alive.IsRunning()
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), info.PID)

	// A very high PID that almost certainly doesn't exist.
	dead := NewPIDFile(filepath.Join(dir, "dead.pid"))
	require.NoError(t, dead.WriteInfo(Info{PID: 999999}))
	info, running = dead.IsRunning()
	assert.Equal(t, 999999, info.PID)
	assert.False(t, running)

	info, running = NewPIDFile(filepath.Join(dir, "none.pid")).IsRunning()
	assert.Zero(t, info)
	assert.False(t, running)
}

func TestPIDFile_Signal(t *testing.T) {
	dir := t.TempDir()
	pf := NewPIDFile(filepath.Join(dir, "zenclock.pid"))
	require.NoError(t, pf.Write(":7420"))

	// Signal 0 only checks that the process exists.
	assert.NoError(t, pf.Signal(syscall.Signal(0)))

	err := NewPIDFile(filepath.Join(dir, "none.pid")).Signal(syscall.Signal(0))
	assert.ErrorContains(t, err, "read PID file")
}

func TestInfo_BaseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":7420", "http://localhost:7420"},
		{"0.0.0.0:8080", "http://localhost:8080"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000"},
		{"[::]:7420", "http://localhost:7420"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Info{Addr: tt.addr}.BaseURL(), tt.addr)
	}
}
