package builtin

import (
	"testing"

	"battdash/internal/checks"
	"battdash/internal/config"
)

// testConfig returns a validated config rooted in a temp workspace.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Workspace = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	return cfg
}

func wantStatus(t *testing.T, res checks.Result, want checks.Status) {
	t.Helper()
	if res.Status != want {
		t.Fatalf("status: got %v (%s), want %v", res.Status, res.Message, want)
	}
}
