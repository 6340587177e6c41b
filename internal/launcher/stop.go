package launcher

import (
	"errors"
	"fmt"
	"syscall"
	"time"
)

// StopOutcome reports what Stop found and did for one role.
type StopOutcome struct {
	PID        int
	WasRunning bool
	Killed     bool // SIGKILL was needed
}

// Stop terminates the process recorded in the PID file: SIGTERM, a bounded
// wait, then SIGKILL. The PID file is removed in every outcome so stale
// files never linger.
func Stop(pidPath string, grace time.Duration) (StopOutcome, error) {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	pf := NewPIDFile(pidPath)

	pid, err := pf.Read()
	if errors.Is(err, ErrNoPIDFile) {
		return StopOutcome{}, nil
	}
	if err != nil {
		// Unreadable or corrupt: clear it so the next start is clean.
		rmErr := pf.Remove()
		if rmErr != nil {
			return StopOutcome{}, rmErr
		}
		return StopOutcome{}, nil
	}

	out := StopOutcome{PID: pid}
	if !ProcessAlive(pid) {
		if err := pf.Remove(); err != nil {
			return out, err
		}
		return out, nil
	}
	out.WasRunning = true

	if err := pf.Signal(syscall.SIGTERM); err != nil {
		if waitGone(pid, 100*time.Millisecond) {
			return out, pf.Remove()
		}
		_ = pf.Remove()
		return out, fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	if waitGone(pid, grace) {
		return out, pf.Remove()
	}

	out.Killed = true
	if err := pf.Signal(syscall.SIGKILL); err != nil && ProcessAlive(pid) {
		_ = pf.Remove()
		return out, fmt.Errorf("kill pid %d: %w", pid, err)
	}
	if !waitGone(pid, 2*time.Second) {
		_ = pf.Remove()
		return out, fmt.Errorf("pid %d survived SIGKILL", pid)
	}
	return out, pf.Remove()
}

// waitGone polls until the process disappears or the wait is exhausted.
func waitGone(pid int, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for {
		if !ProcessAlive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}
