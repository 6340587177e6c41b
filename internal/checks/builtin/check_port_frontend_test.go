package builtin

import (
	"context"
	"strings"
	"testing"

	"battdash/internal/checks"
	"battdash/internal/config"
	"battdash/internal/launcher"
)

func TestPortFrontendCheck(t *testing.T) {
	check := &portFrontendCheck{}

	t.Run("probes the frontend port and role", func(t *testing.T) {
		var probedPort int
		var probedRole string
		env := &checks.Env{
			Config: testConfig(t),
			PortListening: func(host string, port int) bool {
				probedPort = port
				return true
			},
			ReadPID: func(role string) (int, error) {
				probedRole = role
				return 99, nil
			},
			ProcessAlive: func(pid int) bool { return true },
		}

		res, err := check.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusPass)
		if probedPort != 8050 {
			t.Fatalf("probed port: got %d, want 8050", probedPort)
		}
		if probedRole != config.RoleUI {
			t.Fatalf("probed role: got %q, want %q", probedRole, config.RoleUI)
		}
	})

	t.Run("foreign process names frontend.port", func(t *testing.T) {
		env := &checks.Env{
			Config:        testConfig(t),
			PortListening: func(host string, port int) bool { return true },
			ReadPID:       func(role string) (int, error) { return 0, launcher.ErrNoPIDFile },
			ProcessAlive:  func(pid int) bool { return false },
		}

		res, err := check.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusFail)
		if len(res.Detail) == 0 || !strings.Contains(res.Detail[0], "frontend.port") {
			t.Fatalf("detail should name frontend.port, got %v", res.Detail)
		}
	})
}
