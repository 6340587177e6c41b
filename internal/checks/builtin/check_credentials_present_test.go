package builtin

import (
	"context"
	"os"
	"strings"
	"testing"

	"battdash/internal/checks"
)

func TestCredentialsPresentCheck(t *testing.T) {
	check := &credentialsPresentCheck{}

	t.Run("missing file fails with auth hint", func(t *testing.T) {
		env := &checks.Env{Config: testConfig(t)}

		res, err := check.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusFail)
		if !strings.Contains(res.Message, "credentials file not found") {
			t.Fatalf("message: got %q", res.Message)
		}
		if len(res.Detail) != 2 {
			t.Fatalf("detail: got %v", res.Detail)
		}
	})

	t.Run("present file passes", func(t *testing.T) {
		cfg := testConfig(t)
		if err := os.WriteFile(cfg.Drive.Credentials, []byte(`{"installed":{}}`), 0o600); err != nil {
			t.Fatalf("write credentials: %v", err)
		}

		res, err := check.Run(context.Background(), &checks.Env{Config: cfg})
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusPass)
	})

	t.Run("directory at the path fails", func(t *testing.T) {
		cfg := testConfig(t)
		if err := os.Mkdir(cfg.Drive.Credentials, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}

		res, err := check.Run(context.Background(), &checks.Env{Config: cfg})
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusFail)
	})

	t.Run("nil config skips", func(t *testing.T) {
		res, err := check.Run(context.Background(), &checks.Env{})
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusSkip)
	})
}
