package svcrun

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// NoPID is the sentinel returned when a pid file is absent or unparseable.
const NoPID = -1

// PIDStore persists process ids across CLI invocations. The on-disk files
// are the only synchronization mechanism between invocations, so reads are
// best-effort and removes are idempotent.
type PIDStore interface {
	// Read returns the pid recorded at path, or NoPID if the file does not
	// exist or its content is not an integer. It never returns an error.
	Read(path string) int

	// Write records pid at path, creating parent directories as needed.
	Write(path string, pid int) error

	// Remove deletes the file if it exists; a missing file is not an error.
	Remove(path string) error

	// PortFromPID resolves a pid to the first TCP port it listens on, or 0
	// when the process is absent or holds no listening socket.
	PortFromPID(pid int) int
}

// FilePIDStore is the on-disk PIDStore used outside of tests.
type FilePIDStore struct{}

// Read returns the integer content of the file, or NoPID on any failure.
func (FilePIDStore) Read(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return NoPID
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return NoPID
	}
	return pid
}

// Write atomically records pid at path.
func (FilePIDStore) Write(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return fmt.Errorf("creating pid file directory: %w", err)
	}
	data := []byte(strconv.Itoa(pid) + "\n")
	if err := renameio.WriteFile(path, data, FileMode); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	return nil
}

// Remove deletes the pid file if present.
func (FilePIDStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing pid file: %w", err)
	}
	return nil
}

// PortFromPID resolves pid to its first listening TCP port via procfs.
func (FilePIDStore) PortFromPID(pid int) int {
	return portFromPID(pid)
}
