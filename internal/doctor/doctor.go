// Package doctor runs the battdash verify suite. It plans which checks to
// run, executes them concurrently against a shared environment, streams
// results to the configured output sinks, and folds the outcomes into the
// verify exit code.
package doctor

import (
	"context"
	"fmt"
	"os"

	"battdash/internal/checks"
	"battdash/internal/output"
)

// Options carries the verify command's flags into a run.
type Options struct {
	Only         string   // comma-separated check IDs to run (empty = all)
	Skip         string   // comma-separated check IDs to leave out
	Format       string   // console format: text, json or ndjson
	FilterStatus []string // console filter by status (PASS, WARN, FAIL, SKIP, ERROR)
	Emit         []string // extra structured streams to stdout: json or ndjson
	OutputPath   string   // structured results file
	OutputFormat string   // format for OutputPath when the extension is ambiguous
	ReportPath   string   // Markdown report file
	NoConsole    bool     // suppress the console sink
	Concurrency  int      // parallel checks
}

func exitCodeFor(fatal, partial, requiredFailed bool) int {
	// Exit code contract:
	// 0 = ready; every required check passed (warnings allowed)
	// 1 = at least one required check failed
	// 2 = partial; one or more checks could not execute
	// 3 = fatal; the run itself could not start
	if fatal {
		return 3
	}
	if partial {
		return 2
	}
	if requiredFailed {
		return 1
	}
	return 0
}

func setupOutputManager(opts Options) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !opts.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, opts.Format, opts.FilterStatus)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range opts.Emit {
		es, err := output.NewEmitSink(os.Stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if opts.OutputPath != "" {
		fs, err := output.NewFileSink(opts.OutputPath, opts.OutputFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if opts.ReportPath != "" {
		rs, err := output.NewReportSink(opts.ReportPath)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// Engine wires a check environment to the scheduler and the output sinks.
type Engine struct {
	Env *checks.Env

	// schedulerExecute lets tests substitute the real scheduler.
	schedulerExecute func(ctx context.Context, plan *Plan, concurrency int) ([]checks.Result, error)
}

func NewEngine(env *checks.Env) *Engine {
	return &Engine{Env: env}
}

func (e *Engine) executeChecks(ctx context.Context, plan *Plan, concurrency int) ([]checks.Result, error) {
	if e.schedulerExecute != nil {
		return e.schedulerExecute(ctx, plan, concurrency)
	}
	sched, err := NewScheduler(e.Env, concurrency)
	if err != nil {
		return nil, err
	}
	return sched.Execute(ctx, plan)
}

// Run executes the verify suite and returns its exit code. Failures of the
// run itself (bad selectors, broken sinks) are reported on stderr and map
// to the fatal exit code.
func (e *Engine) Run(ctx context.Context, opts Options) int {
	plan, err := BuildPlan(opts.Only, opts.Skip)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving checks: %v\n", err)
		return exitCodeFor(true, false, false)
	}
	if !opts.NoConsole {
		fmt.Fprintf(os.Stderr, "Running %d checks...\n", len(plan.Checks))
	}

	outMgr, err := setupOutputManager(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return exitCodeFor(true, false, false)
	}
	defer outMgr.Close()

	_ = outMgr.Write(output.Event{Type: "run.started", Checks: len(plan.Checks)})

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}
	results, err := e.executeChecks(ctx, plan, concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running checks: %v\n", err)
		code := exitCodeFor(true, false, false)
		_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: code})
		return code
	}

	var partial, requiredFailed bool
	counts := make(map[checks.Status]int)
	for _, res := range results {
		_ = outMgr.Write(res)
		counts[res.Status]++
		switch res.Status {
		case checks.StatusError:
			partial = true
		case checks.StatusFail:
			if res.Required {
				requiredFailed = true
			}
		}
	}

	code := exitCodeFor(false, partial, requiredFailed)
	_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: code})

	if !opts.NoConsole {
		summary := fmt.Sprintf("%d checks: %d passed, %d warned, %d failed, %d skipped",
			len(results), counts[checks.StatusPass], counts[checks.StatusWarn],
			counts[checks.StatusFail], counts[checks.StatusSkip])
		if counts[checks.StatusError] > 0 {
			summary += fmt.Sprintf(", %d errored", counts[checks.StatusError])
		}
		fmt.Fprintln(os.Stderr, summary)
	}
	return code
}
