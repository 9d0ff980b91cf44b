package svcrun

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// ProcessHandle is the capability a spawned or adopted OS process exposes.
// It isolates process APIs behind one seam so lifecycle logic can run
// against fakes in tests.
type ProcessHandle interface {
	// PID returns the operating system process id
	PID() int
	// Signal delivers sig to the process
	Signal(sig os.Signal) error
	// Wait blocks until the process exits and returns its exit error
	Wait() error
	// Alive reports whether the process currently exists
	Alive() bool
}

// SpawnSpec describes a process to launch.
type SpawnSpec struct {
	// Argv is the command and its arguments; Argv[0] is resolved via PATH
	Argv []string
	// Dir is the working directory; empty inherits the caller's
	Dir string
	// Env is appended to the inherited environment
	Env []string
	// Stdout and Stderr receive the process output; nil discards it
	Stdout io.Writer
	Stderr io.Writer
	// Stdin feeds the process input; nil connects /dev/null
	Stdin io.Reader
	// Detach severs the process from the caller's session so it survives
	// CLI exit (used for daemon spawns)
	Detach bool
}

// Launcher spawns processes and adopts existing ones by pid.
type Launcher interface {
	// Spawn launches the described process without waiting for it
	Spawn(spec SpawnSpec) (ProcessHandle, error)
	// Find adopts a running process by pid; ok is false if it is absent
	Find(pid int) (ProcessHandle, bool)
}

// ExecLauncher is the os/exec-backed Launcher used outside of tests.
type ExecLauncher struct{}

// Spawn launches the described process.
func (ExecLauncher) Spawn(spec SpawnSpec) (ProcessHandle, error) {
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.Stdin = spec.Stdin
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if spec.Detach {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", spec.Argv[0], err)
	}
	return &execHandle{cmd: cmd}, nil
}

// Find adopts a running process by pid using a signal-0 existence probe.
func (ExecLauncher) Find(pid int) (ProcessHandle, bool) {
	if pid <= 0 {
		return nil, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil, false
	}
	return &osHandle{proc: proc, pid: pid}, true
}

// execHandle wraps a process this invocation spawned.
type execHandle struct {
	cmd *exec.Cmd
}

func (h *execHandle) PID() int { return h.cmd.Process.Pid }

func (h *execHandle) Signal(sig os.Signal) error { return h.cmd.Process.Signal(sig) }

func (h *execHandle) Wait() error { return h.cmd.Wait() }

func (h *execHandle) Alive() bool {
	return h.cmd.Process.Signal(syscall.Signal(0)) == nil
}

// osHandle wraps a process adopted by pid. Wait cannot reap a process we
// did not spawn, so it polls for disappearance instead.
type osHandle struct {
	proc *os.Process
	pid  int
}

func (h *osHandle) PID() int { return h.pid }

func (h *osHandle) Signal(sig os.Signal) error { return h.proc.Signal(sig) }

func (h *osHandle) Wait() error {
	if _, err := h.proc.Wait(); err == nil {
		return nil
	}
	// Not our child: fall back to existence polling.
	for h.Alive() {
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

func (h *osHandle) Alive() bool {
	return h.proc.Signal(syscall.Signal(0)) == nil
}
