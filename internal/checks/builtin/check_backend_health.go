package builtin

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"battdash/internal/checks"
	"battdash/internal/config"
	"battdash/internal/launcher"
)

type backendHealthCheck struct{}

func (c *backendHealthCheck) ID() string {
	return "backend.health"
}

func (c *backendHealthCheck) Title() string {
	return "Backend Health"
}

func (c *backendHealthCheck) Description() string {
	return "Verifies that a running backend answers its health endpoint."
}

func (c *backendHealthCheck) Required() bool {
	return false
}

func (c *backendHealthCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.Config == nil {
		return checks.Skip(c, "no configuration"), nil
	}
	return runHealthCheck(ctx, c, env, config.RoleAPI, env.Config.BackendHealthURL()), nil
}

// runHealthCheck probes a server's health endpoint, but only when its pid
// file says it should be running.
func runHealthCheck(ctx context.Context, c checks.Check, env *checks.Env, role, url string) checks.Result {
	if env.ReadPID == nil {
		return checks.Skip(c, "pid probe unavailable")
	}
	pid, err := env.ReadPID(role)
	if errors.Is(err, launcher.ErrNoPIDFile) {
		return checks.Skip(c, role+" not running")
	}
	if err != nil {
		return checks.Warn(c, fmt.Sprintf("%s pid file unreadable: %v", role, err))
	}
	if env.ProcessAlive != nil && !env.ProcessAlive(pid) {
		return checks.FailWithDetail(c,
			fmt.Sprintf("%s pid %d is not running", role, pid),
			"stale pid file; run `battdash stop` to clean up")
	}

	client := env.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return checks.Fail(c, fmt.Sprintf("build health request: %v", err))
	}
	resp, err := client.Do(req)
	if err != nil {
		return checks.Fail(c, fmt.Sprintf("health endpoint unreachable: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return checks.Fail(c, fmt.Sprintf("health endpoint returned %d", resp.StatusCode))
	}
	return checks.Pass(c, fmt.Sprintf("%s healthy (pid %d)", role, pid))
}

func init() {
	checks.Register(&backendHealthCheck{})
}
