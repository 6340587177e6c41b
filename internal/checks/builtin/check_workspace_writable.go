package builtin

import (
	"context"
	"fmt"
	"os"

	"battdash/internal/checks"
)

type workspaceWritableCheck struct{}

func (c *workspaceWritableCheck) ID() string {
	return "workspace.writable"
}

func (c *workspaceWritableCheck) Title() string {
	return "Workspace Writable"
}

func (c *workspaceWritableCheck) Description() string {
	return "Verifies that the workspace directory exists and accepts writes."
}

func (c *workspaceWritableCheck) Required() bool {
	return true
}

func (c *workspaceWritableCheck) Run(ctx context.Context, env *checks.Env) (checks.Result, error) {
	if env.Config == nil {
		return checks.Skip(c, "no configuration"), nil
	}
	ws := env.Config.Workspace

	info, err := os.Stat(ws)
	if os.IsNotExist(err) {
		return checks.FailWithDetail(c,
			fmt.Sprintf("workspace %s does not exist", ws),
			"run `battdash install` to create it"), nil
	}
	if err != nil {
		return checks.Result{}, fmt.Errorf("stat workspace: %w", err)
	}
	if !info.IsDir() {
		return checks.Fail(c, fmt.Sprintf("workspace %s is not a directory", ws)), nil
	}

	probe, err := os.CreateTemp(ws, ".writable-*")
	if err != nil {
		return checks.Fail(c, fmt.Sprintf("workspace not writable: %v", err)), nil
	}
	probe.Close()
	os.Remove(probe.Name())
	return checks.PassWithDetail(c, "workspace writable", "directory: "+ws), nil
}

func init() {
	checks.Register(&workspaceWritableCheck{})
}
