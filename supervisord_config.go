package svcrun

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// ConfBuilder renders the supervisord configuration artifact: one
// [program:x] section per managed service, all collected under a single
// [group:x] section, plus the inet control endpoint the controller talks to.
type ConfBuilder struct {
	// Group is the program group name
	Group string
	// Host is the control endpoint bind address
	Host string
	// Port is the inet_http_server control port
	Port int
	// StateDir anchors daemon log and pid files
	StateDir string
	// Services are the programs to manage
	Services []ServiceConfig
}

// NewConfBuilder seeds a builder from the tool configuration.
func NewConfBuilder(cfg *Config) *ConfBuilder {
	return &ConfBuilder{
		Group:    cfg.Group,
		Host:     cfg.Host,
		Port:     cfg.Daemon.Port,
		StateDir: cfg.StateDir,
		Services: cfg.Services,
	}
}

// Build renders the INI document.
func (b *ConfBuilder) Build() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[supervisord]\n")
	fmt.Fprintf(&sb, "logfile=%s\n", filepath.Join(b.StateDir, "supervisord.log"))
	fmt.Fprintf(&sb, "pidfile=%s\n", filepath.Join(b.StateDir, DaemonPIDFile))
	fmt.Fprintf(&sb, "childlogdir=%s\n", filepath.Join(b.StateDir, "log"))
	fmt.Fprintf(&sb, "umask=%03o\n", DefaultUmask)
	fmt.Fprintf(&sb, "nodaemon=false\n\n")

	fmt.Fprintf(&sb, "[inet_http_server]\n")
	fmt.Fprintf(&sb, "port=%s:%d\n\n", b.Host, b.Port)

	fmt.Fprintf(&sb, "[supervisorctl]\n")
	fmt.Fprintf(&sb, "serverurl=http://%s:%d\n\n", b.Host, b.Port)

	fmt.Fprintf(&sb, "[rpcinterface:supervisor]\n")
	fmt.Fprintf(&sb, "supervisor.rpcinterface_factory = supervisor.rpcinterface:make_main_rpcinterface\n\n")

	names := make([]string, 0, len(b.Services))
	for _, svc := range b.Services {
		names = append(names, svc.Name)

		fmt.Fprintf(&sb, "[program:%s]\n", svc.Name)
		fmt.Fprintf(&sb, "command=%s\n", joinCommand(svc.Command))
		if svc.Dir != "" {
			fmt.Fprintf(&sb, "directory=%s\n", svc.Dir)
		}
		fmt.Fprintf(&sb, "stdout_logfile=%s\n", svc.LogFile)
		fmt.Fprintf(&sb, "autostart=false\n")
		fmt.Fprintf(&sb, "autorestart=true\n\n")
	}

	fmt.Fprintf(&sb, "[group:%s]\n", b.Group)
	fmt.Fprintf(&sb, "programs=%s\n", strings.Join(names, ","))

	return sb.String()
}

// Write renders the configuration to path atomically, creating parent
// directories and the child log directory as needed.
func (b *ConfBuilder) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(b.StateDir, "log"), DirMode); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(b.Build()), FileMode); err != nil {
		return fmt.Errorf("writing daemon config: %w", err)
	}
	return nil
}

// joinCommand renders an argv as a supervisord command line, quoting
// arguments that need it.
func joinCommand(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, part := range argv {
		parts = append(parts, shellQuote(part))
	}
	return strings.Join(parts, " ")
}

// shellQuote escapes a string for safe use in command lines
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !needsShellQuoting(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// needsShellQuoting checks if a string contains characters that require quoting
func needsShellQuoting(s string) bool {
	const specialChars = " \t\n'\"\\$`!*?[](){}<>|&;~"

	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			return true
		}
	}
	return false
}
