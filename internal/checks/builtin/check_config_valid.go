// Package builtin holds the battdash verify checks. Importing it registers
// every check; the doctor engine discovers them through the registry.
package builtin

import (
	"context"

	"battdash/internal/checks"
)

type configValidCheck struct{}

func (c *configValidCheck) ID() string {
	return "config.valid"
}

func (c *configValidCheck) Title() string {
	return "Configuration Valid"
}

func (c *configValidCheck) Description() string {
	return "Verifies that the configuration parses and validates."
}

func (c *configValidCheck) Required() bool {
	return true
}

func (c *configValidCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.ConfigErr != nil {
		return checks.Fail(c, env.ConfigErr.Error()), nil
	}
	if env.Config == nil {
		return checks.Fail(c, "no configuration loaded"), nil
	}

	detail := []string{"workspace: " + env.Config.Workspace}
	if env.ConfigPath != "" {
		detail = append(detail, "file: "+env.ConfigPath)
	}
	return checks.PassWithDetail(c, "configuration valid", detail...), nil
}

func init() {
	checks.Register(&configValidCheck{})
}
