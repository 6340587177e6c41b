package builtin

import (
	"context"
	"fmt"
	"os"

	"battdash/internal/checks"
)

type credentialsPresentCheck struct{}

func (c *credentialsPresentCheck) ID() string {
	return "credentials.present"
}

func (c *credentialsPresentCheck) Title() string {
	return "Drive Credentials Present"
}

func (c *credentialsPresentCheck) Description() string {
	return "Verifies that the OAuth client file exists. Its contents are not inspected."
}

func (c *credentialsPresentCheck) Required() bool {
	return true
}

func (c *credentialsPresentCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.Config == nil {
		return checks.Skip(c, "no configuration"), nil
	}
	path := env.Config.Drive.Credentials

	// Presence only; parsing is the Drive client's job.
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return checks.FailWithDetail(c,
			fmt.Sprintf("credentials file not found: %s", path),
			"download an OAuth client file from the Google Cloud console",
			"place it at that path, then run `battdash auth`"), nil
	}
	if err != nil {
		return checks.Result{}, fmt.Errorf("stat credentials: %w", err)
	}
	if info.IsDir() {
		return checks.Fail(c, fmt.Sprintf("%s is a directory, expected a file", path)), nil
	}
	return checks.Pass(c, "credentials file present"), nil
}

func init() {
	checks.Register(&credentialsPresentCheck{})
}
