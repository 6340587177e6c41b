package builtin

import (
	"context"

	"battdash/internal/checks"
	"battdash/internal/config"
)

type portFrontendCheck struct{}

func (c *portFrontendCheck) ID() string {
	return "port.frontend"
}

func (c *portFrontendCheck) Title() string {
	return "Frontend Port Available"
}

func (c *portFrontendCheck) Description() string {
	return "Verifies that the frontend port is free or held by a live battdash frontend."
}

func (c *portFrontendCheck) Required() bool {
	return true
}

func (c *portFrontendCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.Config == nil {
		return checks.Skip(c, "no configuration"), nil
	}
	return runPortCheck(c, env, config.RoleUI, "frontend.port",
		env.Config.Frontend.Host, env.Config.Frontend.Port), nil
}

func init() {
	checks.Register(&portFrontendCheck{})
}
