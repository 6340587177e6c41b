package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"battdash/internal/checks"
	"battdash/internal/doctor"
	"battdash/internal/drive"
	"battdash/internal/flags"
	"battdash/internal/release"
)

var (
	verifyOnline       bool
	verifyOnly         string
	verifySkip         string
	verifyJSON         bool
	verifyNDJSON       bool
	verifyStatus       []string
	verifyEmit         []string
	verifyOutput       string
	verifyOutputFormat string
	verifyReport       string
	verifyNoConsole    bool
	verifyConcurrency  int
	verifyTimeout      time.Duration
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that battdash is ready to run",
	Long: `Run the battdash system checks and report readiness.

Checks cover configuration, workspace permissions, credentials, ports and
server health. Offline by default; --online adds the Drive reachability and
release checks. Check IDs for --only/--skip are listed by
"battdash checks list".

Output:
	Console output is text by default; --json prints one aggregate JSON array,
	--ndjson streams one JSON object per line. Structured output can also be
	written via:
	- --output / --output-format: write a JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown report to a file
	- --no-console: suppress the console sink (use with --emit/--output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events
	with a "type" field (run.started, check.result, run.finished); check
	results carry the check ID, status and message.

Exit codes:
	0 = ready; every required check passed (warnings allowed)
	1 = at least one required check failed
	2 = partial failure (some checks could not execute)
	3 = fatal error (verify did not run)

Examples:
  # Offline readiness check
  battdash verify

  # Full check including the Drive and release probes
  battdash verify --online

  # Only the port checks
  battdash verify --only port.backend,port.frontend

  # AI Agent: stream machine-readable events to stdout
  battdash verify --no-console --emit ndjson
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runVerify(cmd.Context()))
	},
}

func runVerify(ctx context.Context) int {
	opts, err := verifyOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 3
	}

	env := checks.NewEnv(cfg, cfgErr, cfgPath, buildVersion)
	env.Online = verifyOnline
	if verifyOnline {
		env.DriveProbe = liveDriveProbe
		env.LatestRelease = func(ctx context.Context) (string, error) {
			tag, _, err := release.NewClient().Latest(ctx)
			return tag, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	return doctor.NewEngine(env).Run(ctx, opts)
}

// verifyOptions folds the verify flags into engine options, rejecting
// combinations the sinks cannot serve.
func verifyOptions() (doctor.Options, error) {
	if verifyJSON && verifyNDJSON {
		return doctor.Options{}, errors.New("--json and --ndjson are mutually exclusive")
	}
	format := "text"
	if verifyJSON {
		format = "json"
	}
	if verifyNDJSON {
		format = "ndjson"
	}

	return doctor.Options{
		Only:         verifyOnly,
		Skip:         verifySkip,
		Format:       format,
		FilterStatus: verifyStatus,
		Emit:         verifyEmit,
		OutputPath:   verifyOutput,
		OutputFormat: verifyOutputFormat,
		ReportPath:   verifyReport,
		NoConsole:    verifyNoConsole,
		Concurrency:  verifyConcurrency,
	}, nil
}

// liveDriveProbe makes one minimal authorized Drive listing call.
func liveDriveProbe(ctx context.Context) error {
	ocfg, err := drive.LoadCredentials(cfg.Drive.Credentials)
	if err != nil {
		return err
	}
	ts, err := drive.TokenSource(ctx, ocfg, cfg.Drive.Token)
	if err != nil {
		return err
	}
	client, err := drive.New(ctx, ts, drive.WithPageSize(1))
	if err != nil {
		return err
	}
	_, err = client.ListFolder(ctx, cfg.Drive.FolderID)
	return err
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyOnline, flags.FlagOnline, false, "Include checks that reach the network (Drive probe, release check)")
	verifyCmd.Flags().StringVar(&verifyOnly, flags.FlagOnly, "", "Run only these check IDs (comma-separated)")
	verifyCmd.Flags().StringVar(&verifySkip, flags.FlagSkip, "", "Skip these check IDs (comma-separated)")
	verifyCmd.Flags().BoolVar(&verifyJSON, flags.FlagJSON, false, "Console output as one aggregate JSON array")
	verifyCmd.Flags().BoolVar(&verifyNDJSON, flags.FlagNDJSON, false, "Console output as an NDJSON event stream")
	verifyCmd.Flags().StringSliceVar(&verifyStatus, flags.FlagStatus, nil, "Filter console output by status (PASS, WARN, FAIL, SKIP, ERROR). Comma-separated.")
	verifyCmd.Flags().StringSliceVar(&verifyEmit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	verifyCmd.Flags().StringVar(&verifyOutput, flags.FlagOutput, "", "Write structured results to this path")
	verifyCmd.Flags().StringVar(&verifyOutputFormat, flags.FlagOutputFormat, "", "Structured format for --output: json|ndjson (default: inferred from file extension)")
	verifyCmd.Flags().StringVar(&verifyReport, flags.FlagReport, "", "Write a Markdown report to this path")
	verifyCmd.Flags().BoolVar(&verifyNoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--output/--report)")
	verifyCmd.Flags().IntVar(&verifyConcurrency, flags.FlagConcurrency, 4, "Concurrent checks (default: 4)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, flags.FlagTimeout, 2*time.Minute, "Global timeout for the run (default: 2m)")
}
