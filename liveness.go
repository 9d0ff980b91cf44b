package svcrun

import (
	"fmt"
	"net/http"
	"time"
)

// Liveness answers whether processes and services are actually running,
// reconciling pid-file state with the OS and the network. Probe failures
// are negative answers, never errors.
type Liveness interface {
	// PIDAlive reports whether pid corresponds to a live OS process
	PIDAlive(pid int) bool

	// ServerRunning reports whether the server tracked by pidfile is up:
	// the recorded pid must be live and the HTTP status endpoint on port
	// must answer without a network error (status code ignored)
	ServerRunning(pidfile string, port int) bool

	// PortInUse reports whether something is already bound to port
	PortInUse(port int) bool
}

// NetProbe is the OS-and-network-backed Liveness used outside of tests.
type NetProbe struct {
	// Host is the probe target address
	Host string
	// StatusPath is the health endpoint path; defaulted to DefaultStatusPath
	StatusPath string
	// Launcher resolves pids to processes for the alive check
	Launcher Launcher
	// PIDs reads pid files for ServerRunning
	PIDs PIDStore
	// Client issues the HTTP probes; defaulted with DefaultProbeTimeout
	Client *http.Client
}

// NewNetProbe returns a NetProbe with OS-backed seams and default timeouts.
func NewNetProbe(host string) *NetProbe {
	return &NetProbe{
		Host:       host,
		StatusPath: DefaultStatusPath,
		Launcher:   ExecLauncher{},
		PIDs:       FilePIDStore{},
		Client:     &http.Client{Timeout: DefaultProbeTimeout},
	}
}

// PIDAlive reports whether pid exists.
func (p *NetProbe) PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, ok := p.Launcher.Find(pid)
	return ok
}

// ServerRunning reports whether the tracked server answers its health
// endpoint. Any probe error counts as "not running".
func (p *NetProbe) ServerRunning(pidfile string, port int) bool {
	pid := p.PIDs.Read(pidfile)
	if pid == NoPID || !p.PIDAlive(pid) {
		return false
	}

	url := fmt.Sprintf("http://%s:%d%s", p.Host, port, p.StatusPath)
	resp, err := p.Client.Get(url)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// PortInUse reports whether a bind probe on port fails.
func (p *NetProbe) PortInUse(port int) bool {
	return ProbePort(p.Host, port) == PortBusy
}

// waitForPort polls PortInUse until the port is bound or the timeout
// expires. It is the cooperative poll used during daemon bring-up.
func waitForPort(live Liveness, port int, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if live.PortInUse(port) {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrWaitTimeout
		}
		time.Sleep(interval)
	}
}
