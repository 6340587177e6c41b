package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"battdash/internal/flags"
	"battdash/internal/release"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, commit, date := BuildInfo()
		fmt.Fprintf(cmd.OutOrStdout(), "battdash %s\ncommit: %s\nbuilt:  %s\n", version, commit, date)
		if !versionCheck {
			return nil
		}
		return checkLatestRelease(cmd.Context(), cmd.OutOrStdout(), version)
	},
}

// checkLatestRelease degrades to a warning when GitHub is unreachable; an
// update check never fails the command.
func checkLatestRelease(ctx context.Context, out io.Writer, current string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	info, err := release.NewClient().Check(ctx, current)
	if err != nil {
		warnf(out, "release check failed: %v", err)
		return nil
	}
	if info.Outdated {
		warnf(out, "update available: %s -> %s", info.Current, info.Latest)
		if info.URL != "" {
			fmt.Fprintf(out, "       %s\n", info.URL)
		}
		return nil
	}
	okf(out, "up to date (latest: %s)", info.Latest)
	return nil
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, flags.FlagCheck, false, "Check GitHub for a newer release")
}
