package svcrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Server composes the Supervisor with pid-file bookkeeping, port allocation,
// and liveness probing into the user-facing lifecycle transitions. Every
// operation supports two modes: supervised, where supervisord owns the
// processes, and legacy, where the server is spawned directly and tracked
// through a pid file.
type Server struct {
	cfg *Config
	sup *Supervisor

	launcher Launcher
	pids     PIDStore
	live     Liveness
	ports    PortAllocator
	out      io.Writer
	errOut   io.Writer
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithServerLauncher sets the process launcher seam
func WithServerLauncher(l Launcher) ServerOption {
	return func(s *Server) {
		s.launcher = l
	}
}

// WithServerPIDStore sets the pid store seam
func WithServerPIDStore(p PIDStore) ServerOption {
	return func(s *Server) {
		s.pids = p
	}
}

// WithServerLiveness sets the liveness oracle seam
func WithServerLiveness(l Liveness) ServerOption {
	return func(s *Server) {
		s.live = l
	}
}

// WithPortAllocator sets the port allocation seam
func WithPortAllocator(p PortAllocator) ServerOption {
	return func(s *Server) {
		s.ports = p
	}
}

// WithSupervisor sets the supervisord controller
func WithSupervisor(sup *Supervisor) ServerOption {
	return func(s *Server) {
		s.sup = sup
	}
}

// WithServerOutput sets the writers receiving user-facing and diagnostic text
func WithServerOutput(out, errOut io.Writer) ServerOption {
	return func(s *Server) {
		s.out = out
		s.errOut = errOut
	}
}

// NewServer creates a Server with OS-backed seams.
func NewServer(cfg *Config, opts ...ServerOption) *Server {
	s := &Server{
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
	if s.ports == nil {
		s.ports = &BindProber{Host: cfg.Host, Notify: s.out}
	}
	if s.sup == nil {
		s.sup = NewSupervisor(cfg,
			WithLauncher(s.launcher),
			WithPIDStore(s.pids),
			WithLiveness(s.live),
			WithOutput(s.out, s.errOut),
		)
	}
	return s
}

// StartOptions parameterizes Start and Restart.
type StartOptions struct {
	// Port is the requested listen port; zero uses the configured port
	Port int
	// Dev appends the configured developer-mode flag to the server argv
	Dev bool
	// Legacy spawns the server directly instead of through supervisord
	Legacy bool
	// Service scopes the supervised start to one program; empty starts the
	// whole group
	Service string
}

// StopOptions parameterizes Stop.
type StopOptions struct {
	// Legacy stops the directly-spawned server instead of going through
	// supervisord
	Legacy bool
	// Service scopes the supervised stop to one program
	Service string
}

// LogsOptions parameterizes Logs.
type LogsOptions struct {
	// Legacy follows the on-disk log file instead of delegating to
	// supervisord's tail
	Legacy bool
	// Service names the service whose logs to stream; required
	Service string
}

// Start brings the server up. In supervised mode it persists any port
// override, ensures the daemon is running, and issues a group-scoped start.
// In legacy mode it spawns the server directly: an already-live pid short
// circuits with its actual listening port, otherwise a free port is
// allocated upward from the requested one.
func (s *Server) Start(ctx context.Context, opts StartOptions) error {
	port := opts.Port
	if port == 0 {
		port = s.cfg.Server.Port
	}

	if opts.Legacy {
		return s.legacyStart(port, opts.Dev)
	}

	if port != s.cfg.Server.Port {
		s.cfg.Server.Port = port
		if err := s.cfg.Save(); err != nil {
			return err
		}
	}

	if err := s.sup.EnsureRunning(ctx); err != nil {
		return err
	}
	return s.sup.RunCtl(ctx, ActionStart, opts.Service)
}

// legacyStart spawns the server directly and records its pid.
func (s *Server) legacyStart(requested int, dev bool) error {
	pidfile := s.cfg.Server.PIDFile

	if pid := s.pids.Read(pidfile); pid != NoPID && s.live.PIDAlive(pid) {
		// Report the port the process actually listens on, not the one the
		// caller asked for: a previous start may have substituted.
		port := s.pids.PortFromPID(pid)
		if port == 0 {
			port = s.cfg.Server.Port
		}
		fmt.Fprintf(s.out, MsgServerAlreadyRunning+"\n", s.cfg.AppName, s.cfg.Host, port)
		return nil
	}

	// Stale pid file from a dead process: clear it before starting fresh.
	if err := s.pids.Remove(pidfile); err != nil {
		return err
	}

	port, err := s.ports.NextAvailable(requested)
	if err != nil {
		return err
	}

	argv := expandPortTokens(s.cfg.Server.Command, port)
	if dev && s.cfg.Server.DevFlag != "" {
		argv = append(argv, s.cfg.Server.DevFlag)
	}

	logFile, err := openLogFile(s.cfg.Server.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	handle, err := s.launcher.Spawn(SpawnSpec{
		Argv:   argv,
		Dir:    s.cfg.Server.Dir,
		Stdout: logFile,
		Stderr: logFile,
		Detach: true,
	})
	if err != nil {
		return err
	}

	if err := s.pids.Write(pidfile, handle.PID()); err != nil {
		return err
	}

	s.cfg.Server.Port = port
	if err := s.cfg.Save(); err != nil {
		return err
	}

	fmt.Fprintf(s.out, MsgServerRunning+"\n", s.cfg.AppName, s.cfg.Host, port)
	return nil
}

// Stop brings the server down. Supervised mode ensures the daemon is up and
// issues a group-scoped stop; legacy mode signals the recorded pid and waits
// for it to exit.
func (s *Server) Stop(ctx context.Context, opts StopOptions) error {
	if opts.Legacy {
		return s.gracefulShutdown(s.cfg.Server.PIDFile)
	}
	if err := s.sup.EnsureRunning(ctx); err != nil {
		return err
	}
	return s.sup.RunCtl(ctx, ActionStop, opts.Service)
}

// Restart stops then starts. In legacy mode a live server's actual listening
// port is carried over to the fresh start so the restart is address-stable.
func (s *Server) Restart(ctx context.Context, opts StartOptions) error {
	if opts.Legacy {
		port := opts.Port
		if port == 0 {
			port = s.cfg.Server.Port
			if pid := s.pids.Read(s.cfg.Server.PIDFile); pid != NoPID && s.live.PIDAlive(pid) {
				if p := s.pids.PortFromPID(pid); p != 0 {
					port = p
				}
			}
		}
		if err := s.gracefulShutdown(s.cfg.Server.PIDFile); err != nil {
			return err
		}
		return s.legacyStart(port, opts.Dev)
	}

	if err := s.sup.EnsureRunning(ctx); err != nil {
		return err
	}
	return s.sup.RunCtl(ctx, ActionRestart, opts.Service)
}

// Status reports the server's state. Supervised mode ensures the daemon is
// up and relays its status table verbatim. Legacy mode reconciles the pid
// file with the OS: a recorded pid whose process died is cleaned up, but an
// absent pid file is left alone.
func (s *Server) Status(ctx context.Context, legacy bool) error {
	if !legacy {
		if err := s.sup.EnsureRunning(ctx); err != nil {
			return err
		}
		return s.sup.RunCtl(ctx, ActionStatus, "")
	}

	pidfile := s.cfg.Server.PIDFile
	pid := s.pids.Read(pidfile)
	if pid != NoPID && s.live.ServerRunning(pidfile, s.cfg.Server.Port) {
		fmt.Fprintf(s.out, MsgServerRunning+"\n", s.cfg.AppName, s.cfg.Host, s.cfg.Server.Port)
		return nil
	}

	if pid != NoPID {
		// The file names a dead process: remove the stale record.
		if err := s.pids.Remove(pidfile); err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, MsgServerStopped+"\n", s.cfg.AppName)
	return nil
}

// Logs streams a service's output. Without a service name it prints the
// usage hint and issues no control commands at all.
func (s *Server) Logs(ctx context.Context, opts LogsOptions) error {
	if opts.Service == "" {
		fmt.Fprintln(s.out, MsgNoServiceForLogs)
		return nil
	}

	if opts.Legacy {
		return FollowFile(ctx, s.serviceLogPath(opts.Service), s.out)
	}
	if err := s.sup.EnsureRunning(ctx); err != nil {
		return err
	}
	return s.sup.TailLogs(ctx, opts.Service)
}

// Purge tears everything down and removes all generated state. The daemon
// teardown is skipped entirely when neither its configuration nor its pid
// file exists. File removal failures are collected rather than aborting the
// purge midway.
func (s *Server) Purge(ctx context.Context, legacy bool) error {
	var errs MultiError

	if legacy {
		errs.Add(s.gracefulShutdown(s.cfg.Server.PIDFile))
	} else if s.daemonStatePresent() {
		if s.sup.Running() {
			errs.Add(s.sup.StopAll(ctx))
		}
		errs.Add(s.gracefulShutdown(s.cfg.DaemonPIDPath()))
		if err := os.Remove(s.cfg.DaemonConfPath()); err != nil && !os.IsNotExist(err) {
			errs.Add(err)
		}
	}

	for _, dir := range s.cfg.PurgeDirs {
		errs.Add(os.RemoveAll(dir))
	}
	errs.Add(s.cfg.Reset())

	if err := errs.Err(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, MsgPurged+"\n", s.cfg.AppName)
	return nil
}

// daemonStatePresent reports whether any supervisord artifact exists on
// disk. When nothing does, purge has no daemon work to do.
func (s *Server) daemonStatePresent() bool {
	if _, err := os.Stat(s.cfg.DaemonConfPath()); err == nil {
		return true
	}
	if _, err := os.Stat(s.cfg.DaemonPIDPath()); err == nil {
		return true
	}
	return false
}

// gracefulShutdown terminates the process recorded in pidfile, if it is
// still alive, and removes the file either way.
func (s *Server) gracefulShutdown(pidfile string) error {
	pid := s.pids.Read(pidfile)
	if handle, ok := s.launcher.Find(pid); pid != NoPID && ok {
		if err := handle.Signal(syscall.SIGTERM); err == nil {
			_ = handle.Wait()
		}
		fmt.Fprintf(s.out, MsgServerShutdown+"\n", s.cfg.AppName)
	} else {
		fmt.Fprintf(s.out, MsgServerWasNotRunning+"\n", s.cfg.AppName)
	}
	return s.pids.Remove(pidfile)
}

// serviceLogPath resolves the on-disk log file for a named service,
// falling back to the primary server's log.
func (s *Server) serviceLogPath(service string) string {
	for _, svc := range s.cfg.Services {
		if svc.Name == service {
			return svc.LogFile
		}
	}
	return s.cfg.Server.LogFile
}

// expandPortTokens substitutes the chosen port for "{port}" tokens in the
// configured argv.
func expandPortTokens(argv []string, port int) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = strings.ReplaceAll(arg, "{port}", strconv.Itoa(port))
	}
	return out
}

// openLogFile opens the server log for appending, creating it and its
// directory as needed.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FileMode)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
