package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"battdash/internal/drive"
	"battdash/internal/flags"
)

var (
	authManual bool
	authForce  bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize read-only Google Drive access",
	Long: `Authorize battdash to read your Google Drive.

Needs an OAuth "Desktop app" client file (credentials.json) in the workspace;
without one, auth prints the Google Cloud console steps to create it. With
one, it opens the consent flow in your browser, waits for the loopback
callback, and stores the granted token (owner-readable only). The requested
scope is read-only; battdash never writes to Drive.

Examples:
  battdash auth

  # No browser on this machine: paste the code printed by the consent page
  battdash auth --manual

  # Authorize again even though a token exists
  battdash auth --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		return runAuth(cmd)
	},
}

func runAuth(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(cfg.Drive.Credentials); err != nil {
		printCredentialsHelp(out, cfg.Drive.Credentials)
		return fmt.Errorf("credentials file not found: %s", cfg.Drive.Credentials)
	}
	ocfg, err := drive.LoadCredentials(cfg.Drive.Credentials)
	if err != nil {
		return err
	}

	if !authForce {
		if tok, err := drive.LoadToken(cfg.Drive.Token); err == nil && usableToken(tok) {
			okf(out, "already authorized (%s)", cfg.Drive.Token)
			fmt.Fprintln(out, "Use --force to run the consent flow again.")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tok, err := drive.Authorize(ctx, ocfg, drive.AuthorizeOptions{
		Manual: authManual,
		Out:    out,
		In:     cmd.InOrStdin(),
	})
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	if err := drive.SaveToken(cfg.Drive.Token, tok); err != nil {
		return err
	}
	okf(out, "token saved to %s", cfg.Drive.Token)

	// Probe failures do not unwind the auth: the token is already saved and
	// may work once the network does.
	client, err := drive.New(ctx, ocfg.TokenSource(ctx, tok), drive.WithPageSize(1))
	if err == nil {
		var user string
		if user, err = client.About(ctx); err == nil {
			okf(out, "authorized as %s", user)
			return nil
		}
	}
	warnf(out, "token saved but the Drive probe failed: %v", err)
	return nil
}

// usableToken reports whether a stored token can still mint access: either
// the access token is live or a refresh token is present.
func usableToken(tok *oauth2.Token) bool {
	return tok.Valid() || tok.RefreshToken != ""
}

func printCredentialsHelp(w io.Writer, path string) {
	failf(w, "no OAuth client file at %s", path)
	fmt.Fprintf(w, `
battdash needs a Google OAuth "Desktop app" client to read your Drive:

  1. Open https://console.cloud.google.com/ and create (or pick) a project.
  2. Enable the Google Drive API for the project.
  3. Create OAuth client credentials of type "Desktop app".
  4. Download the JSON and save it as:

       %s

Then run battdash auth again.
`, path)
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.Flags().BoolVar(&authManual, flags.FlagManual, false, "Paste the authorization code instead of waiting for the browser callback")
	authCmd.Flags().BoolVar(&authForce, flags.FlagForce, false, "Reauthorize even if a usable token exists")
}
