package builtin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"battdash/internal/checks"
)

func TestDriveReachableCheck(t *testing.T) {
	check := &driveReachableCheck{}

	t.Run("offline run skips", func(t *testing.T) {
		env := &checks.Env{DriveProbe: func(ctx context.Context) error { return nil }}
		res, err := check.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusSkip)
		if !strings.Contains(res.Message, "--online") {
			t.Fatalf("skip should mention --online, got %q", res.Message)
		}
	})

	t.Run("no probe configured skips", func(t *testing.T) {
		res, err := check.Run(context.Background(), &checks.Env{Online: true})
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusSkip)
	})

	t.Run("successful probe passes", func(t *testing.T) {
		env := &checks.Env{
			Online:     true,
			DriveProbe: func(ctx context.Context) error { return nil },
		}
		res, err := check.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusPass)
	})

	t.Run("failed probe fails", func(t *testing.T) {
		env := &checks.Env{
			Online:     true,
			DriveProbe: func(ctx context.Context) error { return errors.New("oauth2: token expired") },
		}
		res, err := check.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		wantStatus(t, res, checks.StatusFail)
		if !strings.Contains(res.Message, "token expired") {
			t.Fatalf("message should carry the probe error, got %q", res.Message)
		}
	})
}
