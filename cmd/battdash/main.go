package main

import (
	_ "battdash/internal/checks/builtin"
	"battdash/internal/cli"
	_ "battdash/internal/fetcher/providers"
)

// These variables are populated by the build via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
