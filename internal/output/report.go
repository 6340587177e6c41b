package output

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"battdash/internal/checks"
)

// ReportSink renders a verify run as a markdown report on Close.
type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	results      []checks.Result
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path: path,
		file: f,
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case checks.Result:
		s.results = append(s.results, t)
	case Event:
		if t.Type == "run.finished" {
			s.exitCode = t.ExitCode
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeErr := func(err error) error {
		_ = s.file.Close()
		return err
	}

	counts := make(map[checks.Status]int)
	var fails, warns, errs []checks.Result
	for _, r := range s.results {
		counts[r.Status]++
		switch r.Status {
		case checks.StatusFail:
			fails = append(fails, r)
		case checks.StatusWarn:
			warns = append(warns, r)
		case checks.StatusError:
			errs = append(errs, r)
		}
	}

	var b strings.Builder
	b.WriteString("# battdash verify report\n\n")

	// Result table, in run order.
	b.WriteString("| Check | Status | Message |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, r := range s.results {
		name := fmt.Sprintf("`%s`", r.CheckID)
		if r.Required {
			name += " *"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", name, r.Status, r.Message))
	}
	b.WriteString("\n\\* required check\n\n")

	printFinding := func(r checks.Result) {
		b.WriteString(fmt.Sprintf("### %s (`%s`)\n", r.Title, r.CheckID))
		if r.Message != "" {
			b.WriteString(fmt.Sprintf("- %s\n", r.Message))
		}
		for _, d := range r.Detail {
			b.WriteString(fmt.Sprintf("  - %s\n", d))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Failures\n\n")
	if len(fails) == 0 && len(errs) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, r := range fails {
			printFinding(r)
		}
		for _, r := range errs {
			printFinding(r)
		}
	}

	b.WriteString("## Warnings\n\n")
	if len(warns) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, r := range warns {
			printFinding(r)
		}
	}

	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("%d checks: %d passed, %d warned, %d failed, %d skipped",
		len(s.results),
		counts[checks.StatusPass],
		counts[checks.StatusWarn],
		counts[checks.StatusFail],
		counts[checks.StatusSkip]))
	if n := counts[checks.StatusError]; n > 0 {
		b.WriteString(fmt.Sprintf(", %d errored", n))
	}
	b.WriteString(".\n")
	if s.haveExitCode {
		b.WriteString(fmt.Sprintf("\nExit code: %d\n", s.exitCode))
	}

	if _, err := s.file.WriteString(b.String()); err != nil {
		return writeErr(err)
	}
	return s.file.Close()
}
