package svcrun

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupervisor(cfg *Config) (*Supervisor, *fakeLauncher, *fakePIDStore, *fakeLiveness, *bytes.Buffer) {
	launcher := &fakeLauncher{procs: map[int]*fakeHandle{}}
	pids := newFakePIDStore()
	live := &fakeLiveness{alivePIDs: map[int]bool{}}
	out := &bytes.Buffer{}
	sup := NewSupervisor(cfg,
		WithLauncher(launcher),
		WithPIDStore(pids),
		WithLiveness(live),
		WithOutput(out, out),
	)
	return sup, launcher, pids, live, out
}

func TestSupervisorEnsureConfig(t *testing.T) {
	cfg := testConfig(t)
	sup, _, _, _, _ := newTestSupervisor(cfg)

	require.NoError(t, sup.EnsureConfig())
	data, err := os.ReadFile(cfg.DaemonConfPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[supervisord]")

	// An existing file is never regenerated.
	sentinel := []byte("; operator-edited\n")
	require.NoError(t, os.WriteFile(cfg.DaemonConfPath(), sentinel, FileMode))
	require.NoError(t, sup.EnsureConfig())
	data, err = os.ReadFile(cfg.DaemonConfPath())
	require.NoError(t, err)
	assert.Equal(t, sentinel, data)
}

func TestSupervisorEnsureRunningFastPath(t *testing.T) {
	cfg := testConfig(t)
	sup, launcher, pids, live, out := newTestSupervisor(cfg)

	require.NoError(t, pids.Write(cfg.DaemonPIDPath(), 777))
	live.alivePIDs[777] = true
	live.portInUse = true

	require.NoError(t, sup.EnsureRunning(context.Background()))
	assert.Equal(t, "Supervisord already running in process 777.\n", out.String())
	assert.Empty(t, launcher.spawned, "fast path must not spawn anything")
}

func TestSupervisorEnsureRunningStartsDaemon(t *testing.T) {
	cfg := testConfig(t)
	sup, launcher, pids, live, out := newTestSupervisor(cfg)

	// The daemon writes its pid file on disk; pre-create it so the
	// post-spawn file wait returns immediately.
	require.NoError(t, FilePIDStore{}.Write(cfg.DaemonPIDPath(), 888))

	launcher.onSpawn = func(spec SpawnSpec) {
		live.portInUse = true
		_ = pids.Write(cfg.DaemonPIDPath(), 888)
	}

	require.NoError(t, sup.EnsureRunning(context.Background()))

	require.Len(t, launcher.spawned, 1)
	spec := launcher.spawned[0]
	assert.Equal(t, []string{DaemonBinary}, spec.Argv)
	assert.Equal(t, cfg.StateDir, spec.Dir)
	assert.True(t, spec.Detach)
	assert.Equal(t, "Started Supervisord process 888.\n", out.String())
}

func TestSupervisorEnsureRunningTimeout(t *testing.T) {
	cfg := testConfig(t)
	sup, launcher, _, _, _ := newTestSupervisor(cfg)

	err := sup.EnsureRunning(context.Background())
	require.ErrorIs(t, err, ErrDaemonStartTimeout)
	assert.True(t, IsFatal(err))

	// Only the daemon spawn happened; no control commands followed.
	require.Len(t, launcher.spawned, 1)
	assert.Equal(t, []string{DaemonBinary}, launcher.spawned[0].Argv)
}

func TestSupervisorRunCtlArgv(t *testing.T) {
	cfg := testConfig(t)
	sup, launcher, _, _, _ := newTestSupervisor(cfg)
	ctx := context.Background()

	require.NoError(t, sup.RunCtl(ctx, ActionStart, ""))
	require.NoError(t, sup.RunCtl(ctx, ActionStop, "dispatcher"))
	require.NoError(t, sup.RunCtl(ctx, ActionRestart, ""))
	require.NoError(t, sup.RunCtl(ctx, ActionStatus, ""))

	assert.Equal(t, [][]string{
		{"supervisorctl", "start", "covalent:"},
		{"supervisorctl", "stop", "covalent:dispatcher"},
		{"supervisorctl", "restart", "covalent:"},
		{"supervisorctl", "status"},
	}, launcher.argvs())

	for _, spec := range launcher.spawned {
		assert.Equal(t, cfg.StateDir, spec.Dir)
		assert.False(t, spec.Detach)
	}
}

func TestSupervisorTailLogs(t *testing.T) {
	cfg := testConfig(t)
	sup, launcher, _, _, _ := newTestSupervisor(cfg)

	require.NoError(t, sup.TailLogs(context.Background(), "ui"))
	assert.Equal(t, [][]string{
		{"supervisorctl", "tail", "covalent:ui", "stderr"},
		{"supervisorctl", "tail", "covalent:ui"},
		{"supervisorctl", "tail", "-f", "covalent:ui"},
	}, launcher.argvs())
}

func TestSupervisorTailLogsNoService(t *testing.T) {
	cfg := testConfig(t)
	sup, launcher, _, _, _ := newTestSupervisor(cfg)

	err := sup.TailLogs(context.Background(), "")
	require.ErrorIs(t, err, ErrNoService)
	assert.Empty(t, launcher.spawned)
}

func TestSupervisorRunCtlRelaysExitError(t *testing.T) {
	cfg := testConfig(t)
	sup, launcher, _, _, _ := newTestSupervisor(cfg)

	exitErr := assert.AnError
	launcher.onSpawn = func(spec SpawnSpec) {
		launcher.handles[len(launcher.handles)-1].waitErr = exitErr
	}

	err := sup.RunCtl(context.Background(), ActionStart, "")
	var ctlErr *CtlError
	require.ErrorAs(t, err, &ctlErr)
	assert.Equal(t, ActionStart, ctlErr.Op)
	assert.ErrorIs(t, err, exitErr)
}
