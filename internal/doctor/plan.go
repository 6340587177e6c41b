package doctor

import (
	"battdash/internal/checks"
)

// Plan is the ordered list of checks a verify run executes. Order follows
// the resolved selector, so two runs with the same flags produce results
// in the same order.
type Plan struct {
	Checks []checks.Check
}

// BuildPlan resolves the --only selector against the check registry and
// removes anything named by --skip. Unknown IDs in either list are an
// error so typos surface instead of silently running the wrong set.
func BuildPlan(only, skip string) (*Plan, error) {
	selected, err := checks.Resolve(only)
	if err != nil {
		return nil, err
	}

	skipped := make(map[string]struct{})
	if skip != "" {
		skipChecks, err := checks.Resolve(skip)
		if err != nil {
			return nil, err
		}
		for _, c := range skipChecks {
			skipped[c.ID()] = struct{}{}
		}
	}

	plan := &Plan{Checks: make([]checks.Check, 0, len(selected))}
	for _, c := range selected {
		if _, ok := skipped[c.ID()]; ok {
			continue
		}
		plan.Checks = append(plan.Checks, c)
	}
	return plan, nil
}
