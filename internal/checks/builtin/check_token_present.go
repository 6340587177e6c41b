package builtin

import (
	"context"
	"fmt"
	"os"
	"time"

	"battdash/internal/checks"
)

type tokenPresentCheck struct{}

func (c *tokenPresentCheck) ID() string {
	return "token.present"
}

func (c *tokenPresentCheck) Title() string {
	return "Drive Token Present"
}

func (c *tokenPresentCheck) Description() string {
	return "Verifies that a stored OAuth token exists and reports its age."
}

func (c *tokenPresentCheck) Required() bool {
	return false
}

func (c *tokenPresentCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.Config == nil {
		return checks.Skip(c, "no configuration"), nil
	}
	path := env.Config.Drive.Token

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return checks.WarnWithDetail(c, "no stored token",
			"run `battdash auth` to authorize Drive access"), nil
	}
	if err != nil {
		return checks.Result{}, fmt.Errorf("stat token: %w", err)
	}
	age := time.Since(info.ModTime()).Round(time.Minute)
	return checks.PassWithDetail(c, "token present", fmt.Sprintf("age: %s", age)), nil
}

func init() {
	checks.Register(&tokenPresentCheck{})
}
