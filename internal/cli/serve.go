package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"battdash/internal/api"
	"battdash/internal/config"
	"battdash/internal/dashboard"
	"battdash/internal/drive"
	"battdash/internal/fetcher"
	"battdash/internal/launcher"
	"battdash/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run one battdash server in the foreground",
	Long: `Run one battdash server in the foreground.

These are the processes "battdash start" spawns; run them directly for
debugging or under a process supervisor. Each writes its PID file on startup,
removes it on exit, and logs structured JSON to stderr.

Examples:
  battdash serve api
  battdash serve ui --verbose`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var serveAPICmd = &cobra.Command{
	Use:   "api",
	Short: "Run the backend API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, config.RoleAPI)
	},
}

var serveUICmd = &cobra.Command{
	Use:   "ui",
	Short: "Run the dashboard server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, config.RoleUI)
	},
}

func runServe(cmd *cobra.Command, role string) error {
	if err := requireConfig(); err != nil {
		return err
	}
	logger, err := newServerLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cleanup, err := writePIDFile(role)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if role == config.RoleAPI {
		srv, err := newBackendServer(ctx, logger)
		if err != nil {
			return err
		}
		srv.WarmCache(ctx)
		return srv.ListenAndServe(ctx)
	}
	front, err := dashboard.NewServer(cfg, buildVersion, logger)
	if err != nil {
		return err
	}
	return front.ListenAndServe(ctx)
}

// newServerLogger builds the process logger: JSON to stderr, or the console
// development encoder with --verbose.
func newServerLogger() (*zap.Logger, error) {
	if cfg.Runtime.Verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func writePIDFile(role string) (func(), error) {
	pf := launcher.NewPIDFile(cfg.PIDPath(role))
	if err := pf.Write(); err != nil {
		return nil, err
	}
	return func() { _ = pf.Remove() }, nil
}

// newBackendServer assembles the API server. A missing or unreadable Drive
// session is not fatal: the server starts degraded and answers from the cache
// until auth completes.
func newBackendServer(ctx context.Context, logger *zap.Logger) (*api.Server, error) {
	st, err := store.Open(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.MemoryEntries, logger)
	if err != nil {
		return nil, err
	}

	var fetch *fetcher.Fetcher
	if client, err := newDriveClient(ctx, logger); err != nil {
		logger.Warn("starting without Drive access", zap.Error(err))
	} else {
		fetch = fetcher.NewFetcher(client, st, fetcher.NewPacer(0), logger)
	}
	return api.NewServer(cfg, fetch, st, buildVersion, logger)
}

func newDriveClient(ctx context.Context, logger *zap.Logger) (*drive.Client, error) {
	ocfg, err := drive.LoadCredentials(cfg.Drive.Credentials)
	if err != nil {
		return nil, err
	}
	ts, err := drive.TokenSource(ctx, ocfg, cfg.Drive.Token)
	if err != nil {
		return nil, err
	}
	return drive.New(ctx, ts,
		drive.WithPageSize(cfg.Drive.PageSize),
		drive.WithLogger(logger),
		drive.WithVerboseLogging(cfg.Runtime.Verbose),
	)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(serveAPICmd)
	serveCmd.AddCommand(serveUICmd)
}
