package svcrun

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Config is the single explicit configuration object for a process
// invocation. It is created once at startup and passed by pointer into every
// component; there is no ambient global state.
type Config struct {
	// AppName is the display name used in user-facing messages
	AppName string `yaml:"app_name"`
	// Host is the address services bind and probes target
	Host string `yaml:"host"`
	// Group is the supervisord program group name
	Group string `yaml:"group"`
	// StateDir holds pid files, logs, and generated daemon configuration
	StateDir string `yaml:"state_dir"`
	// PurgeDirs are log/cache directories removed wholesale on purge
	PurgeDirs []string `yaml:"purge_dirs"`
	// Server describes the primary server managed in legacy mode
	Server ServerConfig `yaml:"server"`
	// Services are the programs managed under the supervisord group
	Services []ServiceConfig `yaml:"services"`
	// Daemon configures supervisord itself
	Daemon DaemonConfig `yaml:"daemon"`

	// path is where Save persists the config; empty means in-memory only
	path string
}

// ServerConfig describes the legacy-mode server: spawned directly and
// tracked through a pid file rather than through supervisord.
type ServerConfig struct {
	// Port is the requested listen port; the allocator may substitute
	Port int `yaml:"port"`
	// Command is the argv to spawn; "{port}" tokens are replaced with the
	// chosen port at start time
	Command []string `yaml:"command"`
	// Dir is the working directory for the spawned server
	Dir string `yaml:"dir"`
	// DevFlag, when non-empty, is appended to the argv for developer mode
	DevFlag string `yaml:"dev_flag"`
	// PIDFile is the pid file path; defaulted under StateDir when empty
	PIDFile string `yaml:"pid_file"`
	// LogFile receives the spawned server's combined output
	LogFile string `yaml:"log_file"`
}

// ServiceConfig describes one supervised program in the group.
type ServiceConfig struct {
	// Name is the program name within the group
	Name string `yaml:"name"`
	// Command is the argv supervisord runs
	Command []string `yaml:"command"`
	// Dir is the program working directory
	Dir string `yaml:"dir"`
	// LogFile receives the program's stdout; defaulted under StateDir
	LogFile string `yaml:"log_file"`
	// Port is the service's listen port, used for health probes
	Port int `yaml:"port"`
}

// DaemonConfig configures the supervisord daemon and its control protocol.
type DaemonConfig struct {
	// Port is the inet_http_server control port
	Port int `yaml:"port"`
	// StartTimeout bounds the wait for the control port to bind
	StartTimeout time.Duration `yaml:"start_timeout"`
	// PollInterval is the sampling interval during that wait
	PollInterval time.Duration `yaml:"poll_interval"`
	// PIDFileTimeout bounds the best-effort wait for the daemon pid file
	// after the control port binds
	PIDFileTimeout time.Duration `yaml:"pidfile_timeout"`
}

// DefaultConfig returns a Config populated with defaults rooted under
// ~/.svcrun (or the current directory if the home dir cannot be resolved).
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	stateDir := filepath.Join(home, ".svcrun")

	cfg := &Config{
		AppName:  DefaultAppName,
		Host:     DefaultHost,
		Group:    DefaultGroup,
		StateDir: stateDir,
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Daemon: DaemonConfig{
			Port:           DefaultDaemonPort,
			StartTimeout:   DefaultDaemonStartTimeout,
			PollInterval:   DefaultDaemonPollInterval,
			PIDFileTimeout: DefaultDaemonPIDFileTimeout,
		},
		path: filepath.Join(stateDir, ConfigFile),
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills derived paths left empty by the user or the loader.
func (c *Config) applyDefaults() {
	if c.Server.PIDFile == "" {
		c.Server.PIDFile = filepath.Join(c.StateDir, "server.pid")
	}
	if c.Server.LogFile == "" {
		c.Server.LogFile = filepath.Join(c.StateDir, "server.log")
	}
	for i := range c.Services {
		if c.Services[i].LogFile == "" {
			c.Services[i].LogFile = filepath.Join(c.StateDir, "log", c.Services[i].Name+".log")
		}
	}
}

// DaemonConfPath returns the generated supervisord configuration path.
func (c *Config) DaemonConfPath() string {
	return filepath.Join(c.StateDir, DaemonConfFile)
}

// DaemonPIDPath returns the supervisord pid file path.
func (c *Config) DaemonPIDPath() string {
	return filepath.Join(c.StateDir, DaemonPIDFile)
}

// LoadConfig reads a persisted configuration from path. A missing file is
// not an error: the defaults are returned with the path recorded so a later
// Save creates it.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save persists the configuration atomically to its path.
func (c *Config) Save() error {
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), DirMode); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := renameio.WriteFile(c.path, data, FileMode); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Set applies a single "key=value" override to the configuration. Keys use
// the same names as the YAML document. Unknown keys are an error so typos
// surface immediately.
func (c *Config) Set(pair string) error {
	key, value, ok := strings.Cut(pair, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", pair)
	}

	switch key {
	case "app_name":
		c.AppName = value
	case "host":
		c.Host = value
	case "group":
		c.Group = value
	case "state_dir":
		c.StateDir = value
	case "server.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", value, err)
		}
		c.Server.Port = port
	case "daemon.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", value, err)
		}
		c.Daemon.Port = port
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// Reset restores the configuration to defaults, keeping its persistence
// path, and saves the result. Used by purge.
func (c *Config) Reset() error {
	fresh := DefaultConfig()
	fresh.path = c.path
	*c = *fresh
	return c.Save()
}
