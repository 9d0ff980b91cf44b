package svcrun

import (
	"fmt"
	"io"
	"net"
)

// maxPort is the top of the TCP port space; the upward search treats
// passing it as exhaustion.
const maxPort = 65535

// ProbeOutcome is the explicit result of a single port bind probe.
type ProbeOutcome int

const (
	// PortAvailable means a bind-and-release probe on the port succeeded
	PortAvailable ProbeOutcome = iota
	// PortBusy means something is already bound to the port
	PortBusy
)

// ProbePort attempts to bind a throwaway listener on the port and reports
// the outcome. The listener is released immediately; the result is a
// best-effort snapshot, not a reservation.
func ProbePort(host string, port int) ProbeOutcome {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return PortBusy
	}
	_ = ln.Close()
	return PortAvailable
}

// PortAllocator finds a free port at or above a requested one.
type PortAllocator interface {
	// NextAvailable returns the first bindable port at or above requested.
	NextAvailable(requested int) (int, error)
}

// BindProber is the PortAllocator used outside of tests: it walks upward
// from the requested port probing real binds. When the requested port was
// taken it emits a single diagnostic on Notify naming the substitute.
type BindProber struct {
	// Host is the bind address probed
	Host string
	// Notify receives the substitution diagnostic; nil suppresses it
	Notify io.Writer
	// Probe is the probe function; defaulted to ProbePort
	Probe func(host string, port int) ProbeOutcome
}

// NextAvailable returns the first bindable port at or above requested.
func (b *BindProber) NextAvailable(requested int) (int, error) {
	probe := b.Probe
	if probe == nil {
		probe = ProbePort
	}

	for port := requested; port <= maxPort; port++ {
		if probe(b.Host, port) == PortBusy {
			continue
		}
		if port != requested && b.Notify != nil {
			fmt.Fprintf(b.Notify, "Port %d was unavailable, using port %d instead.\n", requested, port)
		}
		return port, nil
	}
	return 0, ErrPortExhausted
}
