package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
)

// Spec describes a detached server process to spawn.
type Spec struct {
	Binary  string
	Args    []string
	LogPath string
	// Env entries are appended to the parent environment.
	Env []string
}

// Child is a spawned server process. Wait is reaped in a goroutine so the
// child never zombies and premature exits are observable while polling
// readiness.
type Child struct {
	proc *os.Process
	done chan error

	mu     sync.Mutex
	exited bool
	err    error
}

// Spawn starts the binary detached from the current session with stdio
// pointed at the role's log file.
func Spawn(spec Spec) (*Child, error) {
	if spec.Binary == "" {
		return nil, fmt.Errorf("spawn: empty binary path")
	}
	if err := os.MkdirAll(filepath.Dir(spec.LogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	cmd := exec.Command(spec.Binary, spec.Args...)
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("start %s: %w", spec.Binary, err)
	}
	// The child holds its own descriptor now.
	logFile.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	return &Child{proc: cmd.Process, done: done}, nil
}

func (c *Child) PID() int {
	if c == nil || c.proc == nil {
		return 0
	}
	return c.proc.Pid
}

// Exited reports, without blocking, whether the child has exited and with
// what error. Once the child dies it keeps reporting so.
func (c *Child) Exited() (error, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exited {
		return c.err, true
	}
	select {
	case err := <-c.done:
		c.exited = true
		c.err = err
		return err, true
	default:
		return nil, false
	}
}
