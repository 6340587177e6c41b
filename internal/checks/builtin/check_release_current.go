package builtin

import (
	"context"
	"fmt"

	"battdash/internal/checks"
	"battdash/internal/release"
)

type releaseCurrentCheck struct{}

func (c *releaseCurrentCheck) ID() string {
	return "release.current"
}

func (c *releaseCurrentCheck) Title() string {
	return "Release Current"
}

func (c *releaseCurrentCheck) Description() string {
	return "Verifies that the running version is the newest published release."
}

func (c *releaseCurrentCheck) Required() bool {
	return false
}

func (c *releaseCurrentCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if !env.Online {
		return checks.Skip(c, "online checks disabled (use --online)"), nil
	}
	if env.LatestRelease == nil {
		return checks.Skip(c, "release probe not configured"), nil
	}

	latest, err := env.LatestRelease(ctx)
	if err != nil {
		// An unreachable release feed should not fail a verify run.
		return checks.Warn(c, fmt.Sprintf("release check failed: %v", err)), nil
	}

	switch {
	case env.Version == "" || env.Version == "dev":
		return checks.Pass(c, fmt.Sprintf("development build (latest release %s)", latest)), nil
	case release.IsNewer(latest, env.Version):
		return checks.WarnWithDetail(c,
			fmt.Sprintf("newer release available: %s", latest),
			fmt.Sprintf("running %s", env.Version)), nil
	default:
		return checks.Pass(c, fmt.Sprintf("up to date (%s)", env.Version)), nil
	}
}

func init() {
	checks.Register(&releaseCurrentCheck{})
}
