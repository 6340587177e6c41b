package builtin

import (
	"context"
	"errors"
	"fmt"

	"battdash/internal/checks"
	"battdash/internal/config"
	"battdash/internal/launcher"
)

type portBackendCheck struct{}

func (c *portBackendCheck) ID() string {
	return "port.backend"
}

func (c *portBackendCheck) Title() string {
	return "Backend Port Available"
}

func (c *portBackendCheck) Description() string {
	return "Verifies that the backend port is free or held by a live battdash backend."
}

func (c *portBackendCheck) Required() bool {
	return true
}

func (c *portBackendCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.Config == nil {
		return checks.Skip(c, "no configuration"), nil
	}
	return runPortCheck(c, env, config.RoleAPI, "backend.port",
		env.Config.Backend.Host, env.Config.Backend.Port), nil
}

// runPortCheck resolves who owns a port: nobody (pass), our live server for
// the role (pass), or a foreign process (fail).
func runPortCheck(c checks.Check, env *checks.Env, role, cfgKey, host string, port int) checks.Result {
	if env.PortListening == nil {
		return checks.Skip(c, "port probe unavailable")
	}
	if !env.PortListening(host, port) {
		return checks.Pass(c, fmt.Sprintf("port %d is free", port))
	}

	if env.ReadPID != nil {
		pid, err := env.ReadPID(role)
		if err == nil && env.ProcessAlive != nil && env.ProcessAlive(pid) {
			return checks.Pass(c, fmt.Sprintf("port %d held by battdash %s (pid %d)", port, role, pid))
		}
		if err != nil && !errors.Is(err, launcher.ErrNoPIDFile) {
			return checks.FailWithDetail(c,
				fmt.Sprintf("port %d is in use and the %s pid file is unreadable", port, role),
				err.Error())
		}
	}
	return checks.FailWithDetail(c,
		fmt.Sprintf("port %d is in use by another process", port),
		fmt.Sprintf("stop it or change %s in battdash.yaml", cfgKey))
}

func init() {
	checks.Register(&portBackendCheck{})
}
