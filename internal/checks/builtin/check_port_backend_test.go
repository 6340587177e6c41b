package builtin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"battdash/internal/checks"
	"battdash/internal/launcher"
)

func TestPortBackendCheck(t *testing.T) {
	check := &portBackendCheck{}

	tests := []struct {
		name         string
		listening    bool
		pid          int
		pidErr       error
		alive        bool
		wantStatus   checks.Status
		wantContains string
	}{
		{
			name:         "port free passes",
			listening:    false,
			wantStatus:   checks.StatusPass,
			wantContains: "port 8000 is free",
		},
		{
			name:         "our live backend passes",
			listening:    true,
			pid:          4242,
			alive:        true,
			wantStatus:   checks.StatusPass,
			wantContains: "pid 4242",
		},
		{
			name:         "foreign process fails",
			listening:    true,
			pidErr:       launcher.ErrNoPIDFile,
			wantStatus:   checks.StatusFail,
			wantContains: "another process",
		},
		{
			name:         "dead pid behind the port fails",
			listening:    true,
			pid:          4242,
			alive:        false,
			wantStatus:   checks.StatusFail,
			wantContains: "another process",
		},
		{
			name:         "corrupt pid file fails",
			listening:    true,
			pidErr:       errors.New("invalid pid in api.pid"),
			wantStatus:   checks.StatusFail,
			wantContains: "unreadable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &checks.Env{
				Config:        testConfig(t),
				PortListening: func(host string, port int) bool { return tt.listening },
				ReadPID:       func(role string) (int, error) { return tt.pid, tt.pidErr },
				ProcessAlive:  func(pid int) bool { return tt.alive },
			}

			res, err := check.Run(context.Background(), env)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			wantStatus(t, res, tt.wantStatus)
			if !strings.Contains(res.Message, tt.wantContains) {
				t.Fatalf("message %q should contain %q", res.Message, tt.wantContains)
			}
		})
	}

	t.Run("nil config skips", func(t *testing.T) {
		res, err := check.Run(context.Background(), &checks.Env{})
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusSkip)
	})

	t.Run("nil port probe skips", func(t *testing.T) {
		res, err := check.Run(context.Background(), &checks.Env{Config: testConfig(t)})
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusSkip)
	})
}
