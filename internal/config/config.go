package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file battdash looks for inside the workspace.
const DefaultFileName = "battdash.yaml"

// Server roles, used for pid and log file naming.
const (
	RoleAPI = "api"
	RoleUI  = "ui"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli/root.go and the command files
	// - the commented default config written by `battdash install`
	//   (internal/cli/install.go:defaultConfigYAML)

	// Workspace is the directory holding config, credentials, cache, pid and
	// log files (see --workspace). Defaults to ~/.battdash.
	Workspace string `yaml:"workspace"`

	Backend  Server  `yaml:"backend"`
	Frontend Server  `yaml:"frontend"`
	Drive    Drive   `yaml:"drive"`
	Cache    Cache   `yaml:"cache"`
	Battery  Battery `yaml:"battery"`
	Startup  Startup `yaml:"startup"`
	Runtime  Runtime `yaml:"-"`
}

type Server struct {
	// Host is the bind/connect address for the server. Loopback by default;
	// the servers carry no authentication of their own.
	Host string `yaml:"host"`

	// Port is the fixed TCP port for the server (8000 backend, 8050 frontend).
	Port int `yaml:"port"`
}

type Drive struct {
	// FolderID is the Google Drive folder to browse. Empty is normalized to
	// "root", Drive's alias for the "My Drive" root.
	FolderID string `yaml:"folder_id"`

	// Credentials is the OAuth client file path (workspace-relative unless
	// absolute). Its presence gates start/auth flow; only the Drive client
	// parses it.
	Credentials string `yaml:"credentials"`

	// Token is the stored OAuth token path (workspace-relative unless absolute).
	Token string `yaml:"token"`

	// PageSize is the Drive listing page size. 1..1000.
	PageSize int `yaml:"page_size"`
}

type Cache struct {
	// Dir is the cache directory (workspace-relative unless absolute).
	Dir string `yaml:"dir"`

	// TTL is how long a cached file stays valid.
	TTL time.Duration `yaml:"ttl"`

	// MemoryEntries caps the in-memory decoded frame cache.
	MemoryEntries int `yaml:"memory_entries"`

	// Preload is how many uncached files the backend warms on startup. 0 disables.
	Preload int `yaml:"preload"`

	// PreloadDelay is the minimum spacing between preload downloads so
	// interactive requests stay responsive.
	PreloadDelay time.Duration `yaml:"preload_delay"`
}

type Battery struct {
	// CapacityAh is the pack capacity used for C-rate computation.
	CapacityAh float64 `yaml:"capacity_ah"`
}

type Startup struct {
	// Timeout bounds how long `battdash start` waits for a server to become
	// healthy before giving up.
	Timeout time.Duration `yaml:"timeout"`

	// PollInterval is the initial health poll interval; polling backs off
	// exponentially from here.
	PollInterval time.Duration `yaml:"poll_interval"`
}

type Runtime struct {
	// Concurrency controls parallelism for the verify check suite (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout is the global timeout for a verify run (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// Verbose enables more detailed diagnostics, including Drive HTTP logging.
	Verbose bool
}

func New() *Config {
	return &Config{
		Workspace: "~/.battdash",
		Backend: Server{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Frontend: Server{
			Host: "127.0.0.1",
			Port: 8050,
		},
		Drive: Drive{
			Credentials: "credentials.json",
			Token:       "token.json",
			PageSize:    1000,
		},
		Cache: Cache{
			Dir:           "cache",
			TTL:           24 * time.Hour,
			MemoryEntries: 5,
			Preload:       10,
			PreloadDelay:  500 * time.Millisecond,
		},
		Battery: Battery{
			CapacityAh: 3.5,
		},
		Startup: Startup{
			Timeout:      30 * time.Second,
			PollInterval: 100 * time.Millisecond,
		},
		Runtime: Runtime{
			Concurrency: 4,
			Timeout:     2 * time.Minute,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and the workspace
// override. An empty path means "<workspace>/battdash.yaml if it exists"; an
// explicit path must exist.
func Load(path, workspace string) (*Config, error) {
	cfg := New()
	if workspace != "" {
		cfg.Workspace = workspace
	}

	explicit := path != ""
	if path == "" {
		ws, err := expandPath(cfg.Workspace)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(ws, DefaultFileName)
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		// No config file is fine; defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// The flag wins over the file for the workspace itself.
	if workspace != "" {
		cfg.Workspace = workspace
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	ws, err := expandPath(c.Workspace)
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}
	if ws == "" {
		return errors.New("workspace must not be empty")
	}
	c.Workspace = ws

	// Server validation
	if err := validatePort("backend", c.Backend.Port); err != nil {
		return err
	}
	if err := validatePort("frontend", c.Frontend.Port); err != nil {
		return err
	}
	if c.Backend.Port == c.Frontend.Port {
		return fmt.Errorf("backend and frontend ports must differ (both %d)", c.Backend.Port)
	}
	if strings.TrimSpace(c.Backend.Host) == "" {
		c.Backend.Host = "127.0.0.1"
	}
	if strings.TrimSpace(c.Frontend.Host) == "" {
		c.Frontend.Host = "127.0.0.1"
	}

	// Drive validation
	if strings.TrimSpace(c.Drive.FolderID) == "" {
		// Drive's alias for the "My Drive" root.
		c.Drive.FolderID = "root"
	}
	if c.Drive.PageSize <= 0 {
		c.Drive.PageSize = 1000
	}
	if c.Drive.PageSize > 1000 {
		return fmt.Errorf("drive.page_size must be 1..1000, got %d", c.Drive.PageSize)
	}
	c.Drive.Credentials = c.resolvePath(c.Drive.Credentials, "credentials.json")
	c.Drive.Token = c.resolvePath(c.Drive.Token, "token.json")

	// Cache validation: non-positive values fall back to defaults.
	c.Cache.Dir = c.resolvePath(c.Cache.Dir, "cache")
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Cache.MemoryEntries <= 0 {
		c.Cache.MemoryEntries = 5
	}
	if c.Cache.Preload < 0 {
		c.Cache.Preload = 0
	}
	if c.Cache.PreloadDelay <= 0 {
		c.Cache.PreloadDelay = 500 * time.Millisecond
	}

	if c.Battery.CapacityAh <= 0 {
		c.Battery.CapacityAh = 3.5
	}

	if c.Startup.Timeout <= 0 {
		c.Startup.Timeout = 30 * time.Second
	}
	if c.Startup.PollInterval <= 0 {
		c.Startup.PollInterval = 100 * time.Millisecond
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s port must be 1..65535, got %d", name, port)
	}
	return nil
}

// resolvePath turns a possibly relative, possibly empty path into an absolute
// one anchored at the workspace.
func (c *Config) resolvePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = fallback
	}
	if expanded, err := expandPath(p); err == nil {
		p = expanded
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Workspace, p)
}

func expandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			return home, nil
		}
		return filepath.Join(home, p[2:]), nil
	}
	return filepath.Clean(p), nil
}

// Derived paths. All valid only after Validate().

func (c *Config) RunDir() string    { return filepath.Join(c.Workspace, "run") }
func (c *Config) LogDir() string    { return filepath.Join(c.Workspace, "logs") }
func (c *Config) StatePath() string { return filepath.Join(c.Workspace, "state.json") }
func (c *Config) FilePath() string  { return filepath.Join(c.Workspace, DefaultFileName) }

func (c *Config) PIDPath(role string) string {
	return filepath.Join(c.RunDir(), role+".pid")
}

func (c *Config) LogPath(role string) string {
	return filepath.Join(c.LogDir(), role+".log")
}

func (c *Config) BackendAddr() string {
	return net.JoinHostPort(c.Backend.Host, strconv.Itoa(c.Backend.Port))
}

func (c *Config) FrontendAddr() string {
	return net.JoinHostPort(c.Frontend.Host, strconv.Itoa(c.Frontend.Port))
}

func (c *Config) BackendURL() string  { return "http://" + c.BackendAddr() }
func (c *Config) FrontendURL() string { return "http://" + c.FrontendAddr() }

func (c *Config) BackendHealthURL() string  { return c.BackendURL() + "/health" }
func (c *Config) FrontendHealthURL() string { return c.FrontendURL() + "/healthz" }
