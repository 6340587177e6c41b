package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"battdash/internal/config"
	"battdash/internal/launcher"
)

// stopGrace is how long a server gets to exit on SIGTERM before SIGKILL.
const stopGrace = 5 * time.Second

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the battdash servers",
	Long: `Stop the battdash servers recorded in the workspace PID files.

The dashboard goes down first, then the backend. Each gets SIGTERM and up to
five seconds to exit before SIGKILL; PID files are removed either way. Ports
held by processes battdash does not own are reported, never killed.

Examples:
  battdash stop`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		return stopServers(cmd.OutOrStdout(), cfg)
	},
}

func stopServers(out io.Writer, cfg *config.Config) error {
	var failed bool
	// Frontend first, so the dashboard never points at a dead backend.
	for _, role := range []string{config.RoleUI, config.RoleAPI} {
		outcome, err := launcher.Stop(cfg.PIDPath(role), stopGrace)
		switch {
		case err != nil:
			failf(out, "%s: %v", role, err)
			failed = true
		case !outcome.WasRunning:
			fmt.Fprintf(out, "%s: not running\n", role)
		case outcome.Killed:
			warnf(out, "%s did not exit after SIGTERM; killed (pid %d)", role, outcome.PID)
		default:
			okf(out, "%s stopped (pid %d)", role, outcome.PID)
		}
	}

	for _, role := range serverRoles(cfg) {
		if launcher.PortInUse(role.host, role.port, 0) {
			warnf(out, "port %d is still in use by a process battdash does not own", role.port)
		}
	}

	if failed {
		return errors.New("some processes could not be stopped")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
