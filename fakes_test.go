package svcrun

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// testConfig returns a Config rooted in a temp dir with short daemon
// timeouts so negative waits finish quickly.
func testConfig(t *testing.T) *Config {
	t.Helper()
	stateDir := t.TempDir()
	cfg := &Config{
		AppName:  DefaultAppName,
		Host:     DefaultHost,
		Group:    DefaultGroup,
		StateDir: stateDir,
		Server: ServerConfig{
			Port:    DefaultServerPort,
			Command: []string{"app-server", "--port", "{port}"},
		},
		Daemon: DaemonConfig{
			Port:           DefaultDaemonPort,
			StartTimeout:   200 * time.Millisecond,
			PollInterval:   10 * time.Millisecond,
			PIDFileTimeout: 200 * time.Millisecond,
		},
		path: filepath.Join(stateDir, ConfigFile),
	}
	cfg.applyDefaults()
	return cfg
}

// fakeHandle is an in-memory ProcessHandle.
type fakeHandle struct {
	pid     int
	alive   bool
	waitErr error
	signals []os.Signal
}

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) Signal(sig os.Signal) error {
	h.signals = append(h.signals, sig)
	h.alive = false
	return nil
}

func (h *fakeHandle) Wait() error { return h.waitErr }

func (h *fakeHandle) Alive() bool { return h.alive }

// fakeLauncher records every spawn and adopts processes from a fixed table.
type fakeLauncher struct {
	spawned  []SpawnSpec
	handles  []*fakeHandle
	spawnErr error
	procs    map[int]*fakeHandle
	nextPID  int

	// onSpawn, when set, runs after each successful spawn. Tests use it to
	// flip liveness state the moment the daemon is launched.
	onSpawn func(spec SpawnSpec)
}

func (l *fakeLauncher) Spawn(spec SpawnSpec) (ProcessHandle, error) {
	if l.spawnErr != nil {
		return nil, l.spawnErr
	}
	l.spawned = append(l.spawned, spec)
	l.nextPID++
	h := &fakeHandle{pid: 1000 + l.nextPID, alive: true}
	l.handles = append(l.handles, h)
	if l.onSpawn != nil {
		l.onSpawn(spec)
	}
	return h, nil
}

func (l *fakeLauncher) Find(pid int) (ProcessHandle, bool) {
	h, ok := l.procs[pid]
	if !ok || !h.alive {
		return nil, false
	}
	return h, true
}

// argvs returns the recorded spawn argvs for assertion.
func (l *fakeLauncher) argvs() [][]string {
	out := make([][]string, 0, len(l.spawned))
	for _, spec := range l.spawned {
		out = append(out, spec.Argv)
	}
	return out
}

// fakePIDStore keeps pid files and pid-to-port mappings in maps.
type fakePIDStore struct {
	pids    map[string]int
	ports   map[int]int
	removed []string
}

func newFakePIDStore() *fakePIDStore {
	return &fakePIDStore{pids: map[string]int{}, ports: map[int]int{}}
}

func (s *fakePIDStore) Read(path string) int {
	if pid, ok := s.pids[path]; ok {
		return pid
	}
	return NoPID
}

func (s *fakePIDStore) Write(path string, pid int) error {
	s.pids[path] = pid
	return nil
}

func (s *fakePIDStore) Remove(path string) error {
	delete(s.pids, path)
	s.removed = append(s.removed, path)
	return nil
}

func (s *fakePIDStore) PortFromPID(pid int) int { return s.ports[pid] }

// fakeLiveness answers from fixed state; portInUse may be flipped mid-test.
type fakeLiveness struct {
	alivePIDs map[int]bool
	serverUp  bool
	portInUse bool
}

func (l *fakeLiveness) PIDAlive(pid int) bool { return l.alivePIDs[pid] }

func (l *fakeLiveness) ServerRunning(pidfile string, port int) bool { return l.serverUp }

func (l *fakeLiveness) PortInUse(port int) bool { return l.portInUse }

// fakeAllocator returns a fixed port.
type fakeAllocator struct {
	port int
	err  error
}

func (a *fakeAllocator) NextAvailable(requested int) (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	if a.port == 0 {
		return requested, nil
	}
	return a.port, nil
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
