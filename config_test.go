package svcrun

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.AppName != DefaultAppName {
		t.Errorf("AppName = %q, want %q", cfg.AppName, DefaultAppName)
	}
	if cfg.Group != DefaultGroup {
		t.Errorf("Group = %q, want %q", cfg.Group, DefaultGroup)
	}
	if cfg.Daemon.PIDFileTimeout != DefaultDaemonPIDFileTimeout {
		t.Errorf("Daemon.PIDFileTimeout = %v, want %v", cfg.Daemon.PIDFileTimeout, DefaultDaemonPIDFileTimeout)
	}
	if cfg.path != path {
		t.Errorf("path = %q, want %q", cfg.path, path)
	}
}

func TestConfigSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	cfg.Server.Port = 51234
	cfg.Services = []ServiceConfig{
		{Name: "dispatcher", Command: []string{"dispatcher", "--port", "48009"}, Port: 48009},
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Server.Port != 51234 {
		t.Errorf("Server.Port = %d, want 51234", loaded.Server.Port)
	}
	if len(loaded.Services) != 1 || loaded.Services[0].Name != "dispatcher" {
		t.Errorf("Services = %+v, want one dispatcher entry", loaded.Services)
	}
	if loaded.Services[0].LogFile == "" {
		t.Error("service LogFile not defaulted on load")
	}
}

func TestConfigSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.path = ""

	cases := []struct {
		pair    string
		wantErr bool
		check   func() bool
	}{
		{pair: "app_name=Acme", check: func() bool { return cfg.AppName == "Acme" }},
		{pair: "host=127.0.0.1", check: func() bool { return cfg.Host == "127.0.0.1" }},
		{pair: "server.port=50000", check: func() bool { return cfg.Server.Port == 50000 }},
		{pair: "daemon.port=9002", check: func() bool { return cfg.Daemon.Port == 9002 }},
		{pair: "server.port=not-a-port", wantErr: true},
		{pair: "no_such_key=1", wantErr: true},
		{pair: "missing-equals", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.pair, func(t *testing.T) {
			err := cfg.Set(tc.pair)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Set(%q) succeeded, want error", tc.pair)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set(%q) error = %v", tc.pair, err)
			}
			if !tc.check() {
				t.Errorf("Set(%q) did not apply", tc.pair)
			}
		})
	}
}

func TestConfigReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.AppName = "Mutated"
	cfg.Server.Port = 1

	if err := cfg.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if cfg.AppName != DefaultAppName {
		t.Errorf("AppName = %q after reset, want %q", cfg.AppName, DefaultAppName)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d after reset, want %d", cfg.Server.Port, DefaultServerPort)
	}

	// Reset persists: a fresh load sees defaults.
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AppName != DefaultAppName {
		t.Errorf("persisted AppName = %q, want %q", loaded.AppName, DefaultAppName)
	}
}
