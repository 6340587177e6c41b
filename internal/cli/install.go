package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"battdash/internal/config"
	"battdash/internal/flags"
	"battdash/internal/launcher"
	"battdash/internal/store"
)

// defaultConfigYAML is the commented config `battdash install` writes when the
// workspace has none. Every value shown is the default.
// MAINTAINER NOTE: keep this in sync with the Config struct and defaults in
// internal/config/config.go.
const defaultConfigYAML = `# battdash configuration. Every value below is the default; edit what you
# need and restart. Relative paths are resolved against the workspace.

# The workspace holds this file, credentials, the cache, pid files and logs.
# Usually set with --workspace rather than here.
# workspace: ~/.battdash

backend:
  host: 127.0.0.1
  port: 8000

frontend:
  host: 127.0.0.1
  port: 8050

drive:
  # Root Drive folder to browse. Empty means the "My Drive" root.
  folder_id: ""
  credentials: credentials.json
  token: token.json
  page_size: 1000

cache:
  dir: cache
  ttl: 24h
  memory_entries: 5
  # Files warmed on backend startup; 0 disables preloading.
  preload: 10
  preload_delay: 500ms

battery:
  # Pack capacity in amp hours, used for C-rate computation.
  capacity_ah: 3.5

startup:
  timeout: 30s
  poll_interval: 100ms
`

var installAuth bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Set up the battdash workspace",
	Long: `Set up the battdash workspace: directories, a commented default config, and
the install state record.

Install is idempotent; re-running it never overwrites an existing config or
credentials. It warns when the Drive OAuth client file is missing and, with
--auth, runs the authorization flow right after.

Examples:
  # Default workspace (~/.battdash)
  battdash install

  # Custom workspace, then authorize Drive access in one go
  battdash install --workspace /data/battdash --auth

Output:
  One status line per step; warnings point at the command that fixes them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfgErr != nil {
			warnf(out, "existing configuration is invalid; installing with defaults (%v)", cfgErr)
		}
		if err := installWorkspace(out, cfg, buildVersion); err != nil {
			return err
		}
		if installAuth {
			fmt.Fprintln(out)
			return runAuth(cmd)
		}
		return nil
	},
}

// installState is the state.json document recording which battdash version
// set the workspace up last.
type installState struct {
	Version     string    `json:"version"`
	InstalledAt time.Time `json:"installed_at"`
}

func installWorkspace(out io.Writer, cfg *config.Config, version string) error {
	fmt.Fprintf(out, "Installing battdash workspace in %s\n", cfg.Workspace)

	for _, d := range []string{cfg.Workspace, cfg.RunDir(), cfg.LogDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	// Opening the store creates the cache layout (data/, metadata/, index)
	// exactly as the backend will use it.
	if _, err := store.Open(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.MemoryEntries, nil); err != nil {
		return err
	}
	okf(out, "workspace directories ready")

	switch _, err := os.Stat(cfg.FilePath()); {
	case os.IsNotExist(err):
		if err := os.WriteFile(cfg.FilePath(), []byte(defaultConfigYAML), 0o644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
		okf(out, "wrote default config %s", cfg.FilePath())
	case err == nil:
		okf(out, "kept existing config %s", cfg.FilePath())
	default:
		return fmt.Errorf("stat config %s: %w", cfg.FilePath(), err)
	}

	if err := writeInstallState(cfg.StatePath(), version); err != nil {
		return err
	}
	okf(out, "recorded install state (version %s)", version)

	if _, err := os.Stat(cfg.Drive.Credentials); err == nil {
		okf(out, "Drive credentials found (%s)", cfg.Drive.Credentials)
	} else {
		warnf(out, "Drive credentials not found (%s)", cfg.Drive.Credentials)
		fmt.Fprintln(out, "       Run `battdash auth` for setup instructions; the dashboard works")
		fmt.Fprintln(out, "       against cached data until Drive access is authorized.")
	}

	for _, p := range []struct {
		name string
		host string
		port int
	}{
		{"backend", cfg.Backend.Host, cfg.Backend.Port},
		{"frontend", cfg.Frontend.Host, cfg.Frontend.Port},
	} {
		if launcher.PortInUse(p.host, p.port, 0) {
			warnf(out, "%s port %d is currently in use (is battdash already running?)", p.name, p.port)
		} else {
			okf(out, "%s port %d is free", p.name, p.port)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Install complete. Run `battdash start` to launch the dashboard.")
	return nil
}

func writeInstallState(path, version string) error {
	raw, err := json.MarshalIndent(installState{
		Version:     version,
		InstalledAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode install state: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write install state: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().BoolVar(&installAuth, flags.FlagAuth, false, "Run the Drive authorization flow after installing")
}
