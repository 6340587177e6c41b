package flags

// Package flags defines canonical CLI flag names shared across the CLI and the
// verify engine. Keeping these as constants helps avoid drift between Cobra
// flag wiring and other code paths that need to reference flags (e.g. hints
// printed by error paths).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&workspace, flags.FlagWorkspace, "", "...")
//	hint := "--" + flags.FlagWorkspace
const (
	// Workspace / config
	FlagWorkspace = "workspace"
	FlagConfig    = "config"

	// Checks
	FlagOnly   = "only"
	FlagSkip   = "skip"
	FlagOnline = "online"

	// Output
	FlagJSON         = "json"
	FlagNDJSON       = "ndjson"
	FlagStatus       = "status"
	FlagReport       = "report"
	FlagOutput       = "output"
	FlagOutputFormat = "output-format"
	FlagEmit         = "emit"
	FlagNoConsole    = "no-console"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagVerbose     = "verbose"

	// Process control
	FlagForeground = "foreground"

	// Credentials
	FlagManual = "manual"
	FlagForce  = "force"
	FlagAuth   = "auth"

	// Version
	FlagCheck = "check"
)
