package builtin

import (
	"context"

	"battdash/internal/checks"
	"battdash/internal/config"
)

type frontendHealthCheck struct{}

func (c *frontendHealthCheck) ID() string {
	return "frontend.health"
}

func (c *frontendHealthCheck) Title() string {
	return "Frontend Health"
}

func (c *frontendHealthCheck) Description() string {
	return "Verifies that a running frontend answers its health endpoint."
}

func (c *frontendHealthCheck) Required() bool {
	return false
}

func (c *frontendHealthCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.Config == nil {
		return checks.Skip(c, "no configuration"), nil
	}
	return runHealthCheck(ctx, c, env, config.RoleUI, env.Config.FrontendHealthURL()), nil
}

func init() {
	checks.Register(&frontendHealthCheck{})
}
