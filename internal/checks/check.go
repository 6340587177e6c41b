// Package checks defines the verify framework: the Check interface, the
// registry builtin checks register into, and the environment checks probe
// through. The checks themselves live in checks/builtin.
package checks

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"battdash/internal/config"
	"battdash/internal/launcher"
)

type Check interface {
	ID() string
	Title() string
	Description() string

	// Required marks checks whose failure means battdash cannot run.
	Required() bool

	// Run probes the environment. Returning an error (rather than a fail
	// result) means the check itself could not execute; the doctor engine
	// turns that into an ERROR result and a partial run.
	Run(ctx context.Context, env *Env) (Result, error)
}

// Env is everything a check may probe. The function fields are seams: the
// doctor wires live probes, tests substitute fakes, and a nil seam makes
// the checks that need it skip.
type Env struct {
	// Config is the validated configuration, nil when loading failed.
	// ConfigErr then records why.
	Config     *config.Config
	ConfigErr  error
	ConfigPath string

	Version string
	Online  bool

	Client *http.Client
	Logger *zap.Logger

	PortListening func(host string, port int) bool
	ReadPID       func(role string) (int, error)
	ProcessAlive  func(pid int) bool
	DriveProbe    func(ctx context.Context) error
	LatestRelease func(ctx context.Context) (string, error)
}

// NewEnv builds the live probe environment for a verify run. The Drive and
// release seams stay nil here; the verify command wires them only for
// --online runs.
func NewEnv(cfg *config.Config, cfgErr error, cfgPath, version string) *Env {
	env := &Env{
		Config:     cfg,
		ConfigErr:  cfgErr,
		ConfigPath: cfgPath,
		Version:    version,
		Client:     &http.Client{Timeout: 5 * time.Second},
		Logger:     zap.NewNop(),
		PortListening: func(host string, port int) bool {
			return launcher.PortInUse(host, port, 0)
		},
		ProcessAlive: launcher.ProcessAlive,
	}
	if cfg != nil {
		env.ReadPID = func(role string) (int, error) {
			return launcher.NewPIDFile(cfg.PIDPath(role)).Read()
		}
	}
	return env
}
