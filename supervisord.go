package svcrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Supervisor manages the supervisord daemon's lifecycle and dispatches
// control-protocol commands scoped to the configured program group.
//
// The daemon moves through Absent -> Starting -> Running; EnsureRunning is
// the only transition driver and is idempotent. A daemon that fails to bind
// its control port within the start timeout is the one fatal condition:
// callers must not issue control commands after that.
type Supervisor struct {
	cfg *Config

	launcher Launcher
	pids     PIDStore
	live     Liveness
	out      io.Writer
	errOut   io.Writer
}

// SupervisorOption configures a Supervisor
type SupervisorOption func(*Supervisor)

// WithLauncher sets the process launcher seam
func WithLauncher(l Launcher) SupervisorOption {
	return func(s *Supervisor) {
		s.launcher = l
	}
}

// WithPIDStore sets the pid store seam
func WithPIDStore(p PIDStore) SupervisorOption {
	return func(s *Supervisor) {
		s.pids = p
	}
}

// WithLiveness sets the liveness oracle seam
func WithLiveness(l Liveness) SupervisorOption {
	return func(s *Supervisor) {
		s.live = l
	}
}

// WithOutput sets the writers receiving user-facing and diagnostic text
func WithOutput(out, errOut io.Writer) SupervisorOption {
	return func(s *Supervisor) {
		s.out = out
		s.errOut = errOut
	}
}

// NewSupervisor creates a Supervisor with OS-backed seams.
func NewSupervisor(cfg *Config, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		launcher: ExecLauncher{},
		pids:     FilePIDStore{},
		live:     NewNetProbe(cfg.Host),
		out:      os.Stdout,
		errOut:   os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureConfig generates the daemon configuration file if it is absent.
// An existing file is never regenerated or merged: existence is the
// idempotency key, so operator edits survive.
func (s *Supervisor) EnsureConfig() error {
	confPath := s.cfg.DaemonConfPath()
	if _, err := os.Stat(confPath); err == nil {
		return nil
	}
	return NewConfBuilder(s.cfg).Write(confPath)
}

// Running reports whether the daemon is up: its pid file must name a live
// process and the control port must be accepting connections.
func (s *Supervisor) Running() bool {
	pid := s.pids.Read(s.cfg.DaemonPIDPath())
	if pid == NoPID || !s.live.PIDAlive(pid) {
		return false
	}
	return s.live.PortInUse(s.cfg.Daemon.Port)
}

// EnsureRunning brings the daemon to Running. It generates configuration if
// absent, returns immediately when a live daemon is detected, and otherwise
// spawns the daemon detached and waits for its control port to bind within
// the configured timeout.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	if err := s.EnsureConfig(); err != nil {
		return err
	}

	if s.Running() {
		pid := s.pids.Read(s.cfg.DaemonPIDPath())
		fmt.Fprintf(s.out, MsgDaemonAlreadyRunning+"\n", pid)
		return nil
	}

	if _, err := s.launcher.Spawn(SpawnSpec{
		Argv:   []string{DaemonBinary},
		Dir:    s.cfg.StateDir,
		Detach: true,
	}); err != nil {
		return fmt.Errorf("spawning supervisord: %w", err)
	}

	if err := waitForPort(s.live, s.cfg.Daemon.Port, s.cfg.Daemon.StartTimeout, s.cfg.Daemon.PollInterval); err != nil {
		return fmt.Errorf("%w: control port %d did not bind within %s",
			ErrDaemonStartTimeout, s.cfg.Daemon.Port, s.cfg.Daemon.StartTimeout)
	}

	// The daemon writes its pid file during startup; the port binding
	// usually lands after it, but wait briefly so the pid read below sees
	// the fresh file rather than nothing.
	_ = WaitForFile(ctx, s.cfg.DaemonPIDPath(), s.cfg.Daemon.PIDFileTimeout)

	pid := s.pids.Read(s.cfg.DaemonPIDPath())
	fmt.Fprintf(s.out, MsgDaemonStarted+"\n", pid)
	return nil
}

// target renders the group-scoped control target: "group:" addresses every
// service, "group:name" a single one.
func (s *Supervisor) target(service string) string {
	return s.cfg.Group + ":" + service
}

// RunCtl shells out to the control-protocol client for the given action.
// An empty service addresses the whole group. The client's stdout, stderr,
// and exit status are surfaced to the caller verbatim.
func (s *Supervisor) RunCtl(ctx context.Context, action Action, service string) error {
	argv := []string{CtlBinary, action.String()}
	if action.Targeted() {
		argv = append(argv, s.target(service))
	}
	return s.runCtlArgv(ctx, action, argv)
}

// StopAll issues a stop for the whole group. Used during purge.
func (s *Supervisor) StopAll(ctx context.Context) error {
	return s.RunCtl(ctx, ActionStop, "")
}

// TailLogs streams a service's captured output: the stderr tail, the
// stdout tail, then a live follow that blocks until interrupted.
func (s *Supervisor) TailLogs(ctx context.Context, service string) error {
	if service == "" {
		return ErrNoService
	}

	invocations := [][]string{
		{CtlBinary, actionTailStr, s.target(service), "stderr"},
		{CtlBinary, actionTailStr, s.target(service)},
		{CtlBinary, actionTailStr, "-f", s.target(service)},
	}
	for _, argv := range invocations {
		if err := s.runCtlArgv(ctx, ActionTail, argv); err != nil {
			return err
		}
	}
	return nil
}

// runCtlArgv spawns one control-client invocation from the state directory
// (where the generated configuration lives) and waits for it.
func (s *Supervisor) runCtlArgv(ctx context.Context, action Action, argv []string) error {
	handle, err := s.launcher.Spawn(SpawnSpec{
		Argv:   argv,
		Dir:    s.cfg.StateDir,
		Stdout: s.out,
		Stderr: s.errOut,
		Stdin:  os.Stdin,
	})
	if err != nil {
		return &CtlError{Op: action, Path: argv[0], Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- handle.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			// Nonzero exits are relayed, not reinterpreted: the daemon's
			// own output already told the user what happened.
			return &CtlError{Op: action, Path: argv[0], Err: err}
		}
		return nil
	case <-ctx.Done():
		_ = handle.Signal(os.Interrupt)
		<-done
		return ctx.Err()
	}
}

// IsFatal reports whether err must terminate the invocation rather than be
// relayed to the user. Only the daemon-start timeout qualifies.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDaemonStartTimeout)
}
