package doctor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"battdash/internal/checks"
)

// Scheduler runs planned checks with bounded concurrency.
type Scheduler struct {
	env         *checks.Env
	concurrency int
}

func NewScheduler(env *checks.Env, concurrency int) (*Scheduler, error) {
	if env == nil {
		return nil, errors.New("check environment is nil")
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
	}
	return &Scheduler{env: env, concurrency: concurrency}, nil
}

// Execute runs every check in the plan and returns results indexed by plan
// position, so output order never depends on goroutine scheduling. Checks
// that did not start before ctx was canceled come back as ERROR results
// rather than being dropped.
func (s *Scheduler) Execute(ctx context.Context, plan *Plan) ([]checks.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if plan == nil {
		return nil, errors.New("plan is nil")
	}

	results := make([]checks.Result, len(plan.Checks))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

scheduleLoop:
	for i, c := range plan.Checks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break scheduleLoop
		}

		wg.Add(1)
		go func(i int, c checks.Check) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.runOne(ctx, c)
		}(i, c)
	}
	wg.Wait()

	// Slots never scheduled (cancellation) still get a result so the
	// report accounts for every planned check.
	for i, c := range plan.Checks {
		if results[i].Status == "" {
			results[i] = checks.ErrorResult(c, "canceled before the check could run")
		}
	}
	return results, nil
}

// runOne executes a single check. A returned error or a panic becomes an
// ERROR result so one broken check cannot take down the whole run.
func (s *Scheduler) runOne(ctx context.Context, c checks.Check) (res checks.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = checks.ErrorResult(c, fmt.Sprintf("check panicked: %v", r))
		}
	}()

	result, err := c.Run(ctx, s.env)
	if err != nil {
		return checks.ErrorResult(c, err.Error())
	}
	if result.Status == "" {
		return checks.ErrorResult(c, "check returned no status")
	}

	// The check's own declaration is authoritative for identity fields.
	if result.CheckID == "" {
		result.CheckID = c.ID()
	}
	if result.Title == "" {
		result.Title = c.Title()
	}
	result.Required = c.Required()
	return result
}
