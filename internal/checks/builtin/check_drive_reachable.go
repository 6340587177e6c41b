package builtin

import (
	"context"
	"fmt"

	"battdash/internal/checks"
)

type driveReachableCheck struct{}

func (c *driveReachableCheck) ID() string {
	return "drive.reachable"
}

func (c *driveReachableCheck) Title() string {
	return "Drive Reachable"
}

func (c *driveReachableCheck) Description() string {
	return "Verifies that the Drive API answers a minimal listing request."
}

func (c *driveReachableCheck) Required() bool {
	return false
}

func (c *driveReachableCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if !env.Online {
		return checks.Skip(c, "online checks disabled (use --online)"), nil
	}
	if env.DriveProbe == nil {
		return checks.Skip(c, "drive probe not configured"), nil
	}
	if err := env.DriveProbe(ctx); err != nil {
		return checks.Fail(c, fmt.Sprintf("drive not reachable: %v", err)), nil
	}
	return checks.Pass(c, "drive reachable"), nil
}

func init() {
	checks.Register(&driveReachableCheck{})
}
