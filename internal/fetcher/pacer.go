package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cooldown bounds after a rate-limited Drive response. The penalty doubles on
// consecutive hits and resets on the first success.
const (
	initialCooldown = 5 * time.Second
	maxCooldown     = 5 * time.Minute
)

// Pacer spaces Drive requests out. Unlike GitHub, Drive does not advertise a
// remaining-quota header, so pacing is a minimum inter-request interval plus
// an exponential cooldown whenever Drive answers with a rate-limit error.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	cooldown time.Time
	penalty  time.Duration
	now      func() time.Time
	notifyCh chan struct{}
}

// NewPacer builds a pacer with the given minimum spacing between requests.
// Zero or negative means unspaced; cooldowns still apply.
func NewPacer(minInterval time.Duration) *Pacer {
	if minInterval < 0 {
		minInterval = 0
	}
	return &Pacer{
		interval: minInterval,
		now:      time.Now,
		notifyCh: make(chan struct{}),
	}
}

// Acquire blocks until the caller may issue one request.
func (p *Pacer) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if p == nil {
		return fmt.Errorf("Acquire: nil Pacer")
	}
	if p.now == nil || p.notifyCh == nil {
		return fmt.Errorf("Acquire: uninitialized Pacer (use NewPacer)")
	}

	for {
		p.mu.Lock()
		now := p.now()

		ready := p.next
		if p.cooldown.After(ready) {
			ready = p.cooldown
		}

		if !now.Before(ready) {
			p.next = now.Add(p.interval)
			p.mu.Unlock()
			return nil
		}

		ch := p.notifyCh
		p.mu.Unlock()

		wait := ready.Sub(now)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-ch:
			if !timer.Stop() {
				<-timer.C
			}
			continue
		case <-timer.C:
			continue
		}
	}
}

// Observe records the outcome of a Drive call. Rate-limit errors extend the
// cooldown window; a success resets the penalty escalation.
func (p *Pacer) Observe(err error, rateLimited bool) {
	if p == nil || p.now == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		p.penalty = 0
		return
	}
	if !rateLimited {
		return
	}

	if p.penalty == 0 {
		p.penalty = initialCooldown
	} else {
		p.penalty *= 2
		if p.penalty > maxCooldown {
			p.penalty = maxCooldown
		}
	}
	until := p.now().Add(p.penalty)
	if until.After(p.cooldown) {
		p.cooldown = until
	}
	p.signalLocked()
}

// CooldownUntil reports the end of the current rate-limit cooldown, if any.
func (p *Pacer) CooldownUntil() (time.Time, bool) {
	if p == nil || p.now == nil {
		return time.Time{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cooldown.IsZero() || !p.now().Before(p.cooldown) {
		return time.Time{}, false
	}
	return p.cooldown, true
}

// signalLocked wakes waiters so they re-read the cooldown deadline.
func (p *Pacer) signalLocked() {
	if p.notifyCh == nil {
		p.notifyCh = make(chan struct{})
		return
	}
	close(p.notifyCh)
	p.notifyCh = make(chan struct{})
}
