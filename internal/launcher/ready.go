package launcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// pollCap bounds the readiness poll backoff.
const pollCap = 2 * time.Second

// WaitOptions tunes WaitReady.
type WaitOptions struct {
	// Client used for health probes. Defaults to a 2s-per-request client.
	Client *http.Client

	// Initial poll interval; doubles after each miss up to the cap.
	Initial time.Duration

	// Timeout bounds the whole wait.
	Timeout time.Duration

	// Exited, when set, is consulted between polls so a child that died
	// during startup fails fast instead of burning the whole timeout.
	Exited func() (error, bool)
}

// WaitReady polls url until it answers HTTP 200. Connection errors mean "not
// listening yet"; any HTTP response proves the socket is alive but only 200
// counts as ready.
func WaitReady(ctx context.Context, url string, opts WaitOptions) error {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	interval := opts.Initial
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	deadline := time.Now().Add(timeout)
	for {
		if opts.Exited != nil {
			if err, dead := opts.Exited(); dead {
				if err != nil {
					return fmt.Errorf("process exited before becoming ready: %w", err)
				}
				return fmt.Errorf("process exited before becoming ready")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build health request: %w", err)
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for %s", timeout, url)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if interval *= 2; interval > pollCap {
			interval = pollCap
		}
	}
}

// PortInUse reports whether something is accepting TCP connections on
// host:port.
func PortInUse(host string, port int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
