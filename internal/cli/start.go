package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"battdash/internal/config"
	"battdash/internal/dashboard"
	"battdash/internal/flags"
	"battdash/internal/launcher"
)

var startForeground bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the backend and dashboard servers",
	Long: `Start the battdash servers: the backend API, then the web dashboard.

Both run as detached background processes with logs under the workspace. PID
files are authoritative: a port held by a process battdash does not own is an
error, never a kill target. A missing Drive token is not fatal; the backend
starts degraded and serves cached data until "battdash auth" completes.

Examples:
  battdash start

  # Keep both servers in this terminal instead of detaching
  battdash start --foreground

Output:
  One status line per server, then the dashboard and API URLs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		if startForeground {
			return runForeground(cmd)
		}
		return startServers(cmd.Context(), cmd.OutOrStdout(), cfg)
	},
}

// serverRole pairs a role name with its addresses for start/stop loops.
type serverRole struct {
	name   string
	host   string
	port   int
	url    string
	health string
}

func serverRoles(cfg *config.Config) []serverRole {
	return []serverRole{
		{config.RoleAPI, cfg.Backend.Host, cfg.Backend.Port, cfg.BackendURL(), cfg.BackendHealthURL()},
		{config.RoleUI, cfg.Frontend.Host, cfg.Frontend.Port, cfg.FrontendURL(), cfg.FrontendHealthURL()},
	}
}

// checkStartPreconditions gates any start: credentials must exist, a missing
// token only warns.
func checkStartPreconditions(out io.Writer, cfg *config.Config) error {
	if _, err := os.Stat(cfg.Drive.Credentials); err != nil {
		return fmt.Errorf("Drive credentials not found at %s; run `battdash auth` first", cfg.Drive.Credentials)
	}
	if _, err := os.Stat(cfg.Drive.Token); err != nil {
		warnf(out, "no Drive token (%s); starting degraded, Drive endpoints answer 503 until `battdash auth` completes", cfg.Drive.Token)
	}
	return nil
}

func startServers(ctx context.Context, out io.Writer, cfg *config.Config) error {
	if err := checkStartPreconditions(out, cfg); err != nil {
		return err
	}

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own binary: %w", err)
	}

	for _, role := range serverRoles(cfg) {
		if launcher.NewPIDFile(cfg.PIDPath(role.name)).Alive() {
			okf(out, "%s already running at %s", role.name, role.url)
			continue
		}
		if launcher.PortInUse(role.host, role.port, 0) {
			return fmt.Errorf("port %d is in use by a process battdash does not own; stop it or change the %s port in %s",
				role.port, role.name, cfg.FilePath())
		}

		child, err := launcher.Spawn(launcher.Spec{
			Binary:  binary,
			Args:    serveArgs(role.name),
			LogPath: cfg.LogPath(role.name),
		})
		if err != nil {
			return fmt.Errorf("start %s: %w", role.name, err)
		}
		err = launcher.WaitReady(ctx, role.health, launcher.WaitOptions{
			Initial: cfg.Startup.PollInterval,
			Timeout: cfg.Startup.Timeout,
			Exited:  child.Exited,
		})
		if err != nil {
			return fmt.Errorf("%s did not become ready: %w (see %s)", role.name, err, cfg.LogPath(role.name))
		}
		okf(out, "%s ready at %s (pid %d)", role.name, role.url, child.PID())
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Dashboard: %s\n", cfg.FrontendURL())
	fmt.Fprintf(out, "API:       %s\n", cfg.BackendURL())
	fmt.Fprintln(out, "Stop with: battdash stop")
	return nil
}

// serveArgs builds the child's command line. The resolved workspace always
// travels along so parent and children agree on paths even when the config
// file relocated the workspace.
func serveArgs(role string) []string {
	args := []string{"serve", role, "--" + flags.FlagWorkspace, cfg.Workspace}
	if flagConfig != "" {
		args = append(args, "--"+flags.FlagConfig, flagConfig)
	}
	if flagVerbose {
		args = append(args, "--"+flags.FlagVerbose)
	}
	return args
}

// runForeground runs both servers in this process until interrupted.
func runForeground(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if err := checkStartPreconditions(out, cfg); err != nil {
		return err
	}
	for _, role := range serverRoles(cfg) {
		pf := launcher.NewPIDFile(cfg.PIDPath(role.name))
		if pf.Alive() {
			pid, _ := pf.Read()
			return fmt.Errorf("%s already running (pid %d); run `battdash stop` first", role.name, pid)
		}
	}

	logger, err := newServerLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := newBackendServer(ctx, logger)
	if err != nil {
		return err
	}
	front, err := dashboard.NewServer(cfg, buildVersion, logger)
	if err != nil {
		return err
	}

	for _, role := range []string{config.RoleAPI, config.RoleUI} {
		cleanup, err := writePIDFile(role)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	backend.WarmCache(ctx)

	fmt.Fprintf(out, "Dashboard: %s\n", cfg.FrontendURL())
	fmt.Fprintf(out, "API:       %s\n", cfg.BackendURL())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return backend.ListenAndServe(gctx) })
	g.Go(func() error { return front.ListenAndServe(gctx) })
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().BoolVar(&startForeground, flags.FlagForeground, false, "Run both servers in the foreground instead of detaching")
}
