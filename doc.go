// Package svcrun manages the lifecycle of a multi-service application's
// local backend processes through the supervisord process supervisor.
//
// The core functionality centers around two types. Supervisor brings the
// supervisord daemon itself up and down and dispatches control-protocol
// commands scoped to a named program group:
//
//	cfg := svcrun.DefaultConfig()
//	sup := svcrun.NewSupervisor(cfg)
//
//	// Idempotent: generates config if absent, starts the daemon if it
//	// is not already running, waits for its control port to bind.
//	err := sup.EnsureRunning(context.Background())
//
//	// Start every service in the group.
//	err = sup.RunCtl(context.Background(), svcrun.ActionStart, "")
//
// Server composes the Supervisor with PID-file bookkeeping, port
// allocation, and liveness probing into the user-facing start / stop /
// restart / status / purge transitions:
//
//	srv := svcrun.NewServer(cfg)
//	err := srv.Start(context.Background(), svcrun.StartOptions{Port: 48008})
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - Idempotent daemon bring-up: existence of the generated configuration
//     and a live control port are the only state consulted
//   - Reconciliation of PID-file state with real OS process state, so
//     stale files are cleaned up rather than shadowing live processes
//   - Explicit seams (Launcher, PIDStore, Liveness, PortAllocator) behind
//     which all OS interaction hides, keeping every transition testable
//     without spawning real daemons
//   - Context-aware operations with bounded timeouts
//
// Every blocking operation takes a context.Context. The only fatal
// condition in the package is the supervisord control port failing to bind
// within the configured timeout; everything else degrades to a negative
// probe result or a fallback path.
package svcrun
