package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"battdash/internal/config"
	"battdash/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// Effective configuration for this invocation, resolved by loadConfig before
// any command runs. A load failure is recorded rather than fatal so that
// install can repair a broken workspace and verify can report it as a check
// result; commands that need a valid config call requireConfig.
var (
	cfg     = config.New()
	cfgErr  error
	cfgPath string

	flagWorkspace string
	flagConfig    string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "battdash",
	Short: "Battery test dashboard over Google Drive data",
	Long: `battdash runs a local dashboard for battery test data stored on Google Drive.

It browses a Drive folder of test-run CSV exports, parses and caches them on
disk, and serves an analysis API plus a web dashboard on localhost. Drive
access is read-only.

Typical session:
  battdash install        # create the workspace and default config
  battdash auth           # authorize read-only Drive access
  battdash start          # launch the backend and the dashboard
  battdash verify         # check that everything is healthy

Examples:
	# Show available commands and global flags
	battdash --help

	# Start against a non-default workspace
	battdash start --workspace /data/battdash

	# Print build info
	battdash version

Output:
	Commands write human-readable, colored status lines to stdout and errors to
	stderr. The servers log structured JSON to stderr; verify supports
	machine-readable output (see "battdash verify --help").`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, flags.FlagWorkspace, "", "Workspace directory holding config, credentials, cache and logs (default: ~/.battdash)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, flags.FlagConfig, "", "Config file path (default: <workspace>/battdash.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, flags.FlagVerbose, false, "Enable verbose logging (prints every Drive API call and full error details)")
}

// loadConfig resolves the effective configuration once per invocation. On
// failure cfg falls back to validated defaults so degraded commands still
// have sane paths to work with.
func loadConfig() {
	loaded, err := config.Load(flagConfig, flagWorkspace)
	cfgErr = err
	if err == nil {
		cfg = loaded
	} else {
		fallback := config.New()
		if flagWorkspace != "" {
			fallback.Workspace = flagWorkspace
		}
		if fallback.Validate() == nil {
			cfg = fallback
		} else {
			cfg = config.New()
		}
	}
	cfg.Runtime.Verbose = flagVerbose

	cfgPath = flagConfig
	if cfgPath == "" {
		cfgPath = filepath.Join(cfg.Workspace, config.DefaultFileName)
	}
}

// requireConfig gates commands that cannot run against a broken config.
func requireConfig() error {
	if cfgErr != nil {
		return fmt.Errorf("invalid configuration: %w", cfgErr)
	}
	return nil
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
