package svcrun

import (
	"io/fs"
	"time"
)

// Supervisord file and process constants
const (
	// DaemonBinary is the supervisord executable name
	DaemonBinary = "supervisord"

	// CtlBinary is the supervisorctl executable name
	CtlBinary = "supervisorctl"

	// DaemonConfFile is the generated supervisord configuration file name
	DaemonConfFile = "supervisord.conf"

	// DaemonPIDFile is the supervisord pid file name inside the state dir
	DaemonPIDFile = "supervisord.pid"

	// ConfigFile is the persisted tool configuration file name
	ConfigFile = "config.yaml"
)

// Defaults applied by DefaultConfig
const (
	// DefaultGroup is the supervisord program group every service joins
	DefaultGroup = "covalent"

	// DefaultAppName is the display name used in user-facing messages
	DefaultAppName = "Covalent"

	// DefaultHost is the address services bind and probes target
	DefaultHost = "0.0.0.0"

	// DefaultServerPort is the port requested for the primary server
	DefaultServerPort = 48008

	// DefaultDaemonPort is the supervisord inet control port
	DefaultDaemonPort = 9001

	// DefaultStatusPath is the HTTP health endpoint probed on services
	DefaultStatusPath = "/api/status"

	// DefaultDaemonStartTimeout bounds the wait for the control port to bind
	DefaultDaemonStartTimeout = 5 * time.Second

	// DefaultDaemonPollInterval is the sampling interval during that wait
	DefaultDaemonPollInterval = 100 * time.Millisecond

	// DefaultDaemonPIDFileTimeout bounds the best-effort wait for the
	// daemon's pid file after its control port binds
	DefaultDaemonPIDFileTimeout = 1 * time.Second

	// DefaultProbeTimeout is the timeout for a single HTTP health probe
	DefaultProbeTimeout = 2 * time.Second
)

// File modes
const (
	// DirMode is the default mode for created directories
	DirMode = 0o755

	// FileMode is the default mode for created files
	FileMode = 0o644
)

// User-facing text contracts. These strings are stable interfaces: other
// tooling matches on them, so they must not change shape.
const (
	// MsgServerStopped reports a stopped server: app name
	MsgServerStopped = "%s server is stopped."

	// MsgServerRunning reports a running server: app name, host, port
	MsgServerRunning = "%s server is running at http://%s:%d."

	// MsgServerAlreadyRunning reports an already-live server on start: app name, host, port
	MsgServerAlreadyRunning = "%s server is already running at http://%s:%d."

	// MsgDaemonAlreadyRunning reports an idempotent daemon start: pid
	MsgDaemonAlreadyRunning = "Supervisord already running in process %d."

	// MsgDaemonStarted reports a fresh daemon start: pid
	MsgDaemonStarted = "Started Supervisord process %d."

	// MsgServerShutdown reports a completed graceful shutdown: app name
	MsgServerShutdown = "%s server has stopped."

	// MsgServerWasNotRunning reports a shutdown with nothing to stop: app name
	MsgServerWasNotRunning = "%s server was not running."

	// MsgPurged reports a completed purge: app name
	MsgPurged = "%s server files have been purged."

	// MsgNoServiceForLogs is printed when the logs command lacks a service
	// name. Reproduced verbatim from the original CLI, unbalanced quote
	// included, because consumers match the exact text.
	MsgNoServiceForLogs = "No service name provided, please use '-s <service_name>' or '--service <service_name>"
)

// Action represents a supervisorctl control action
type Action int

const (
	// ActionUnknown represents an unknown action
	ActionUnknown Action = iota
	// ActionStart starts one service or the whole group
	ActionStart
	// ActionStop stops one service or the whole group
	ActionStop
	// ActionRestart restarts one service or the whole group
	ActionRestart
	// ActionStatus queries the daemon's status table
	ActionStatus
	// ActionTail streams a service's captured log output
	ActionTail
)

// Action string constants
const (
	actionUnknownStr = "unknown"
	actionStartStr   = "start"
	actionStopStr    = "stop"
	actionRestartStr = "restart"
	actionStatusStr  = "status"
	actionTailStr    = "tail"
)

// String returns the supervisorctl verb for this action
func (a Action) String() string {
	switch a {
	case ActionStart:
		return actionStartStr
	case ActionStop:
		return actionStopStr
	case ActionRestart:
		return actionRestartStr
	case ActionStatus:
		return actionStatusStr
	case ActionTail:
		return actionTailStr
	default:
		return actionUnknownStr
	}
}

// Targeted reports whether the action is scoped to a group target.
// Status reads the whole daemon table and takes no target argument.
func (a Action) Targeted() bool {
	return a == ActionStart || a == ActionStop || a == ActionRestart || a == ActionTail
}

// DefaultUmask is the default umask recorded in generated daemon config
var DefaultUmask fs.FileMode = 0o022
