package builtin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"battdash/internal/checks"
)

func TestReleaseCurrentCheck(t *testing.T) {
	check := &releaseCurrentCheck{}

	latest := func(tag string, err error) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) { return tag, err }
	}

	tests := []struct {
		name       string
		online     bool
		version    string
		probe      func(context.Context) (string, error)
		wantStatus checks.Status
		contains   string
	}{
		{
			name:       "offline skips",
			online:     false,
			probe:      latest("v2.0.0", nil),
			wantStatus: checks.StatusSkip,
			contains:   "--online",
		},
		{
			name:       "no probe skips",
			online:     true,
			wantStatus: checks.StatusSkip,
		},
		{
			name:       "lookup failure warns",
			online:     true,
			version:    "v1.0.0",
			probe:      latest("", errors.New("dial tcp: timeout")),
			wantStatus: checks.StatusWarn,
			contains:   "release check failed",
		},
		{
			name:       "outdated warns",
			online:     true,
			version:    "v1.0.0",
			probe:      latest("v1.1.0", nil),
			wantStatus: checks.StatusWarn,
			contains:   "v1.1.0",
		},
		{
			name:       "current passes",
			online:     true,
			version:    "v1.1.0",
			probe:      latest("v1.1.0", nil),
			wantStatus: checks.StatusPass,
			contains:   "up to date",
		},
		{
			name:       "dev build passes",
			online:     true,
			version:    "dev",
			probe:      latest("v1.1.0", nil),
			wantStatus: checks.StatusPass,
			contains:   "development build",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &checks.Env{
				Online:        tt.online,
				Version:       tt.version,
				LatestRelease: tt.probe,
			}
			res, err := check.Run(context.Background(), env)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			wantStatus(t, res, tt.wantStatus)
			if tt.contains != "" && !strings.Contains(res.Message, tt.contains) {
				t.Fatalf("message %q should contain %q", res.Message, tt.contains)
			}
		})
	}
}
